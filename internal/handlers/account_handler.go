package handlers

import (
	"net/http"

	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type AccountHandler struct {
	accounts *services.AccountService
	reader   *requestReader
}

func NewAccountHandler(accounts *services.AccountService, maxBodyBytes int64) *AccountHandler {
	return &AccountHandler{accounts: accounts, reader: newRequestReader(maxBodyBytes)}
}

// CreateAccount opens an account for the authenticated user
// @Summary Create an account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param account body services.AccountInput true "Branch (3 digits) and account (XXXXXXX-X)"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req services.AccountInput
	if !h.reader.decode(w, r, &req) {
		return
	}

	account, err := h.accounts.Create(r.Context(), userID, req)
	if err != nil {
		services.SendServiceError(w, err, "account.create.error")
		return
	}
	services.SendJSON(w, http.StatusCreated, account)
}

// ListAccounts returns the authenticated user's accounts
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page (max 100)"
// @Success 200 {object} object{data=[]models.Account,meta=services.PageMeta}
// @Router /accounts [get]
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	accounts, meta, err := h.accounts.List(r.Context(), userID, services.ParsePagination(r.URL.Query()))
	if err != nil {
		services.SendServiceError(w, err, "account.index.error")
		return
	}
	services.SendJSON(w, http.StatusOK, listResponse[models.Account]{Data: accounts, Meta: meta})
}

// GetAccount returns one account
// @Summary Get an account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} models.Account
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := h.ownedAccount(w, r, "account.show")
	if !ok {
		return
	}
	services.SendJSON(w, http.StatusOK, account)
}

// UpdateAccount changes branch and account number
// @Summary Update an account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param account body services.AccountInput true "Branch and account"
// @Success 200 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /accounts/{accountId} [put]
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := h.ownedAccount(w, r, "account.update")
	if !ok {
		return
	}

	var req services.AccountInput
	if !h.reader.decode(w, r, &req) {
		return
	}

	updated, err := h.accounts.Update(r.Context(), account.ID, req)
	if err != nil {
		services.SendServiceError(w, err, "account.update.error")
		return
	}
	services.SendJSON(w, http.StatusOK, updated)
}

// DeleteAccount closes an account
// @Summary Delete an account
// @Tags accounts
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 204
// @Failure 403 {object} services.ErrorResponse
// @Router /accounts/{accountId} [delete]
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := h.ownedAccount(w, r, "account.delete")
	if !ok {
		return
	}

	if err := h.accounts.Delete(r.Context(), account.ID); err != nil {
		services.SendServiceError(w, err, "account.delete.error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) ownedAccount(w http.ResponseWriter, r *http.Request, op string) (*models.Account, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}

	account, err := h.accounts.Get(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		services.SendServiceError(w, err, op+".error")
		return nil, false
	}
	if account.UserID != userID {
		services.SendErrorResponse(w, "account.forbidden", http.StatusForbidden, nil)
		return nil, false
	}
	return account, true
}
