package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/financialapp/account-service/shared/cqrs"
	"github.com/financialapp/account-service/shared/errs"
	"github.com/financialapp/account-service/shared/middleware"
	"github.com/financialapp/account-service/shared/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const accountIndexPath = "/account"

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.Account, error)
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (*models.Account, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.Account, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) (*models.AccountList, error)
	ListAccountTypes(context.Context) ([]models.AccountType, error)
}

// AccountHandler handles account-related HTTP requests. Every route expects
// CurrentUserMiddleware to have resolved the caller.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
	logger   *zap.Logger
}

// CreateAccountRequest accepts both JSON and form-encoded bodies. Numbers are
// bound as text so that a malformed value becomes a field error on the form
// instead of a bind failure.
type CreateAccountRequest struct {
	Name          string      `form:"name" json:"name"`
	Amount        json.Number `form:"amount" json:"amount"`
	AccountTypeID json.Number `form:"accountTypeId" json:"accountTypeId"`
}

type UpdateAccountRequest struct {
	Name string `form:"name" json:"name"`
}

// AccountForm is what a create or edit form displays.
type AccountForm struct {
	ID              int64  `json:"id,omitempty"`
	Name            string `json:"name"`
	Amount          string `json:"amount"`
	AccountTypeID   int    `json:"accountTypeId,omitempty"`
	AccountTypeName string `json:"accountTypeName,omitempty"`
}

type AccountFormResponse struct {
	Account      AccountForm          `json:"account"`
	AccountTypes []models.AccountType `json:"accountTypes"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries, logger: logger}
}

// RegisterRoutes mounts the account pages on rg. Deletion is only reachable
// through POST and DELETE.
func (h *AccountHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListAccounts)
	rg.GET("/new", h.NewAccountForm)
	rg.POST("/new", h.CreateAccount)
	rg.GET("/:id/edit", h.EditAccountForm)
	rg.POST("/:id/edit", h.UpdateAccount)
	rg.POST("/:id/delete", h.DeleteAccount)
	rg.DELETE("/:id", h.DeleteAccount)
	rg.GET("/:id/delete", h.DeleteNotAllowed)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	list, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{
		UserID: user.ID,
		Filter: c.Query("filter"),
	})
	if err != nil {
		h.logger.Error("Failed to list accounts", zap.Int64("userId", user.ID), zap.Error(err))
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *AccountHandler) NewAccountForm(c *gin.Context) {
	if _, ok := h.currentUser(c); !ok {
		return
	}
	types, ok := h.accountTypes(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, AccountFormResponse{Account: AccountForm{}, AccountTypes: types})
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	verrs := &errs.ValidationErrors{}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		verrs.Add("amount", "numeric", "Value must be a number")
	}
	typeID, err := parseAccountTypeID(req.AccountTypeID)
	if err != nil {
		verrs.Add("accountTypeId", "numeric", "Value must be a whole number")
	}
	form := AccountForm{Name: req.Name, Amount: req.Amount.String(), AccountTypeID: typeID}
	if !verrs.Empty() {
		h.respondWithForm(c, verrs, form)
		return
	}

	account, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		UserID:        user.ID,
		Name:          req.Name,
		Amount:        amount,
		AccountTypeID: typeID,
	})
	if err != nil {
		if verrs, isValidation := errs.AsValidation(err); isValidation {
			h.respondWithForm(c, verrs, form)
			return
		}
		h.logger.Error("Failed to create account", zap.Int64("userId", user.ID), zap.Error(err))
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	h.logger.Debug("Redirecting after create", zap.Int64("accountId", account.ID))
	c.Redirect(http.StatusSeeOther, accountIndexPath)
}

func (h *AccountHandler) EditAccountForm(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := accountID(c)
	if !ok {
		return
	}

	account, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{
		AccountID:        id,
		RequestingUserID: user.ID,
	})
	if err != nil {
		h.respondWithDomainError(c, err, "access")
		return
	}
	types, ok := h.accountTypes(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, AccountFormResponse{Account: formOf(account), AccountTypes: types})
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := accountID(c)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	_, err := h.commands.UpdateAccount(c.Request.Context(), cqrs.UpdateAccountCommand{
		AccountID:        id,
		RequestingUserID: user.ID,
		Name:             req.Name,
	})
	if err != nil {
		if verrs, isValidation := errs.AsValidation(err); isValidation {
			h.respondWithForm(c, verrs, AccountForm{ID: id, Name: req.Name})
			return
		}
		h.respondWithDomainError(c, err, "update")
		return
	}

	c.Redirect(http.StatusSeeOther, accountIndexPath)
}

// DeleteAccount serves both POST /:id/delete (form submit, redirects back to
// the list) and DELETE /:id (API clients, 204).
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, ok := accountID(c)
	if !ok {
		return
	}

	err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{
		AccountID:        id,
		RequestingUserID: user.ID,
	})
	if err != nil {
		h.respondWithDomainError(c, err, "delete")
		return
	}

	if c.Request.Method == http.MethodDelete {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, accountIndexPath)
}

func (h *AccountHandler) DeleteNotAllowed(c *gin.Context) {
	c.Header("Allow", "POST")
	middleware.RespondWithError(c, http.StatusMethodNotAllowed, "Use POST or DELETE to delete an account")
}

func (h *AccountHandler) currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Unauthenticated")
		return nil, false
	}
	return user, true
}

func (h *AccountHandler) accountTypes(c *gin.Context) ([]models.AccountType, bool) {
	types, err := h.queries.ListAccountTypes(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load account types", zap.Error(err))
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to load account types")
		return nil, false
	}
	return types, true
}

// respondWithForm re-displays the submitted form with its errors and the
// account type options.
func (h *AccountHandler) respondWithForm(c *gin.Context, verrs *errs.ValidationErrors, form AccountForm) {
	types, ok := h.accountTypes(c)
	if !ok {
		return
	}
	middleware.RespondWithValidationError(c, http.StatusBadRequest, verrs, gin.H{
		"account":      form,
		"accountTypes": types,
	})
}

func (h *AccountHandler) respondWithDomainError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
	case errors.Is(err, errs.ErrForbidden):
		middleware.RespondWithError(c, http.StatusForbidden, "You can only "+action+" your own accounts")
	default:
		h.logger.Error("Account operation failed", zap.String("action", action), zap.Error(err))
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to "+action+" account")
	}
}

func accountID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
		return 0, false
	}
	return id, true
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}

func parseAccountTypeID(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	return strconv.Atoi(n.String())
}

func formOf(a *models.Account) AccountForm {
	return AccountForm{
		ID:              a.ID,
		Name:            a.Name,
		Amount:          a.Amount.String(),
		AccountTypeID:   a.AccountTypeID,
		AccountTypeName: a.AccountTypeName,
	}
}
