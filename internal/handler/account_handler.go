package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/eaglebank/accounts/internal/repository"
	"github.com/eaglebank/accounts/shared/cqrs"
	"github.com/eaglebank/accounts/shared/middleware"
	"github.com/eaglebank/accounts/shared/models"
	"github.com/eaglebank/accounts/shared/utils"
	"github.com/gin-gonic/gin"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.AccountView, error)
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (*models.AccountView, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.AccountView, error)
	GetAccountByEmail(context.Context, cqrs.GetAccountByEmailQuery) (*models.AccountView, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

// AccountRequest is the body of create and update requests. Keys other than
// these four are ignored.
type AccountRequest struct {
	Name        string  `json:"name" validate:"required"`
	Email       string  `json:"email" validate:"required"`
	Address     *string `json:"address"`
	PhoneNumber *string `json:"phone_number"`
}

const (
	accountResource = "account"
	badBodyMessage  = "Invalid account: body of request contained bad or no data"
)

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	log.Printf("Request to create an Account")

	req, ok := bindAccountRequest(c)
	if !ok {
		return
	}

	account, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		Name:        req.Name,
		Email:       req.Email,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondWithWriteError(c, err, req.Email, "Failed to create account")
		return
	}

	log.Printf("Account with ID [%d] saved.", account.ID)
	c.JSON(http.StatusCreated, account)
}

// ListAccounts returns every account, or the zero-or-one account owning the
// email given as a query parameter.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	log.Printf("Request to list Accounts")
	ctx := c.Request.Context()

	if email, filtered := c.GetQuery("email"); filtered {
		accounts := []models.AccountView{}
		view, err := h.queries.GetAccountByEmail(ctx, cqrs.GetAccountByEmailQuery{Email: email})
		switch {
		case err == nil:
			accounts = append(accounts, *view)
		case !errors.Is(err, repository.ErrNotFound):
			respondInternalError(c, err, "Failed to list accounts")
			return
		}
		c.JSON(http.StatusOK, accounts)
		return
	}

	accounts, err := h.queries.ListAccounts(ctx, cqrs.ListAccountsQuery{})
	if err != nil {
		respondInternalError(c, err, "Failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []models.AccountView{}
	}

	log.Printf("Returning %d accounts", len(accounts))
	c.JSON(http.StatusOK, accounts)
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	rawID := c.Param("id")
	log.Printf("Request to retrieve Account with id: %s", rawID)

	id, ok := utils.ParseAccountID(rawID)
	if !ok {
		respondNotFound(c, rawID)
		return
	}

	account, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{ID: id})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, rawID)
			return
		}
		respondInternalError(c, err, "Failed to get account")
		return
	}

	log.Printf("Returning account: %s", account.Name)
	c.JSON(http.StatusOK, account)
}

// UpdateAccount checks the account exists before looking at the body, so an
// unknown id is a 404 whatever was sent.
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	rawID := c.Param("id")
	log.Printf("Request to update Account with id: %s", rawID)

	id, ok := utils.ParseAccountID(rawID)
	if !ok {
		respondNotFound(c, rawID)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.queries.GetAccount(ctx, cqrs.GetAccountQuery{ID: id}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, rawID)
			return
		}
		respondInternalError(c, err, "Failed to update account")
		return
	}

	req, ok := bindAccountRequest(c)
	if !ok {
		return
	}

	account, err := h.commands.UpdateAccount(ctx, cqrs.UpdateAccountCommand{
		ID:          id,
		Name:        req.Name,
		Email:       req.Email,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondNotFound(c, rawID)
			return
		}
		respondWithWriteError(c, err, req.Email, "Failed to update account")
		return
	}

	account.ID = id
	log.Printf("Account with ID [%d] updated.", account.ID)
	c.JSON(http.StatusOK, account)
}

// DeleteAccount always answers 204: deleting an absent account is a no-op.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	rawID := c.Param("id")
	log.Printf("Request to delete Account with id: %s", rawID)

	id, ok := utils.ParseAccountID(rawID)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{ID: id}); err != nil {
		respondInternalError(c, err, "Failed to delete account")
		return
	}

	log.Printf("Account with ID [%d] delete complete.", id)
	c.Status(http.StatusNoContent)
}

// bindAccountRequest writes the 400 response itself and reports false when
// the body is absent, not a JSON object, or lacks a required field.
func bindAccountRequest(c *gin.Context) (AccountRequest, bool) {
	var req AccountRequest
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		middleware.RespondWithError(c, http.StatusBadRequest, badBodyMessage)
		return req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, badBodyMessage)
		return req, false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, accountResource, validationErrors)
		return req, false
	}
	return req, true
}

// respondNotFound names a numeric id by its value, so "007" reads as 7.
func respondNotFound(c *gin.Context, rawID string) {
	id := rawID
	if n, err := strconv.ParseInt(rawID, 10, 64); err == nil {
		id = strconv.FormatInt(n, 10)
	}
	middleware.RespondWithError(c, http.StatusNotFound, fmt.Sprintf("Account with id '%s' was not found.", id))
}

func respondWithWriteError(c *gin.Context, err error, email, fallback string) {
	switch {
	case errors.Is(err, repository.ErrConflict):
		middleware.RespondWithError(c, http.StatusConflict, fmt.Sprintf("Account with email '%s' already exists.", email))
	case errors.Is(err, repository.ErrInvalid):
		reason := repository.InvalidReason(err)
		if reason == "" {
			middleware.RespondWithError(c, http.StatusBadRequest, badBodyMessage)
			return
		}
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account: "+reason)
	default:
		respondInternalError(c, err, fallback)
	}
}

// respondInternalError logs err against the request id and answers 500 with
// message only.
func respondInternalError(c *gin.Context, err error, message string) {
	log.Printf("[%s] %s %s: %s: %v", middleware.GetRequestID(c), c.Request.Method, c.Request.URL.Path, message, err)
	middleware.RespondWithError(c, http.StatusInternalServerError, message)
}
