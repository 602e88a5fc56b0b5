package handlers

import (
	"errors"
	"net/http"

	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest represents a credit or debit request
// @Description A negative value posts a debit, a positive one a credit.
type CreateTransactionRequest struct {
	Value       *decimal.Decimal       `json:"value" validate:"required" swaggertype:"string" example:"100.00"`
	Description string                 `json:"description" validate:"required,max=255" example:"Salary"`
	Type        models.TransactionType `json:"type,omitempty" validate:"omitempty,oneof=credit debit" example:"credit"`
}

// TransferRequest represents a transfer to another user's account
// @Description The sender is always debited by the absolute value.
type TransferRequest struct {
	ReceiverID  string                 `json:"receiverId" validate:"required" example:"2b1e4c8a-7f0d-4e8f-9a55-1c2d3e4f5a6b"`
	Value       *decimal.Decimal       `json:"value" validate:"required" swaggertype:"string" example:"50.00"`
	Description string                 `json:"description" validate:"required,max=255" example:"Rent"`
	Type        models.TransactionType `json:"type,omitempty" validate:"omitempty,oneof=credit debit" example:"debit"`
}

type UpdateTransactionRequest struct {
	Description string `json:"description" validate:"required,max=255" example:"Corrected description"`
}

type BalanceResponse struct {
	Balance models.Amount `json:"balance" swaggertype:"string" example:"100.00"`
}

type TransactionHandler struct {
	transactions *services.TransactionService
	accounts     services.AccountResolver
	reader       *requestReader
}

func NewTransactionHandler(transactions *services.TransactionService, accounts services.AccountResolver, maxBodyBytes int64) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		accounts:     accounts,
		reader:       newRequestReader(maxBodyBytes),
	}
}

// CreateTransaction posts a credit or debit
// @Summary Create a transaction
// @Description Credit (value > 0) or debit (value < 0) the balance of the authenticated user
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param Idempotency-Key header string false "Replay key"
// @Param transaction body CreateTransactionRequest true "Transaction data"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/transactions [post]
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "transactions.create"
	accountID := chi.URLParam(r, "accountId")

	userID, ok := h.authorizeAccount(w, r, accountID, op)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if !h.reader.decode(w, r, &req) {
		return
	}

	t, err := h.transactions.CreateTransaction(r.Context(), services.CreateTransactionInput{
		AccountID:    accountID,
		ActingUserID: userID,
		Value:        *req.Value,
		Description:  req.Description,
		Type:         req.Type,
	})
	if err != nil {
		services.SendServiceError(w, err, op+".error")
		return
	}
	services.SendJSON(w, http.StatusCreated, t)
}

// CreateTransfer moves money to another account holder
// @Summary Create a transfer
// @Description Debit the authenticated user and credit the owner of receiverId in one atomic unit
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Sender account ID"
// @Param Idempotency-Key header string false "Replay key"
// @Param transfer body TransferRequest true "Transfer data"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/transfers [post]
func (h *TransactionHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	const op = "transactions.transfer"
	accountID := chi.URLParam(r, "accountId")

	userID, ok := h.authorizeAccount(w, r, accountID, op)
	if !ok {
		return
	}

	var req TransferRequest
	if !h.reader.decode(w, r, &req) {
		return
	}

	t, err := h.transactions.CreateTransfer(r.Context(), services.TransferInput{
		AccountID:         accountID,
		SenderUserID:      userID,
		ReceiverAccountID: req.ReceiverID,
		Value:             *req.Value,
		Description:       req.Description,
		Type:              req.Type,
	})
	if err != nil {
		services.SendServiceError(w, err, op+".error")
		return
	}
	services.SendJSON(w, http.StatusCreated, t)
}

// ReverseTransaction posts the inverse of a transaction
// @Summary Reverse a transaction
// @Description Undo the balance effect of a transaction; a transaction can be reversed once
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param transactionId path string true "Transaction ID"
// @Param Idempotency-Key header string false "Replay key"
// @Success 201 {object} models.Transaction
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts/{accountId}/transactions/{transactionId}/reverse [post]
func (h *TransactionHandler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "transactions.reverse"
	accountID := chi.URLParam(r, "accountId")

	if _, ok := h.authorizeAccount(w, r, accountID, op); !ok {
		return
	}

	t, err := h.transactions.ReverseTransaction(r.Context(), services.ReverseInput{
		AccountID:     accountID,
		TransactionID: chi.URLParam(r, "transactionId"),
	})
	if err != nil {
		services.SendServiceError(w, err, op+".error")
		return
	}
	services.SendJSON(w, http.StatusCreated, t)
}

// GetBalance returns the account holder's balance
// @Summary Get balance
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Success 200 {object} BalanceResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountId}/balance [get]
func (h *TransactionHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	const op = "transactions.balance"
	accountID := chi.URLParam(r, "accountId")

	if _, ok := h.authorizeAccount(w, r, accountID, op); !ok {
		return
	}

	balance, err := h.transactions.GetBalance(r.Context(), accountID)
	if err != nil {
		services.SendServiceError(w, err, op+".error")
		return
	}
	services.SendJSON(w, http.StatusOK, BalanceResponse{Balance: balance})
}

// ListTransactions returns the account's transactions, newest first
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param type query string false "credit or debit"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page (max 100)"
// @Success 200 {object} object{data=[]models.Transaction,meta=services.PageMeta}
// @Router /accounts/{accountId}/transactions [get]
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	const op = "transactions.index"
	accountID := chi.URLParam(r, "accountId")

	if _, ok := h.authorizeAccount(w, r, accountID, op); !ok {
		return
	}

	txType := models.TransactionType(r.URL.Query().Get("type"))
	page := services.ParsePagination(r.URL.Query())

	transactions, meta, err := h.transactions.ListTransactions(r.Context(), accountID, txType, page)
	if err != nil {
		services.SendServiceError(w, err, op+".error")
		return
	}
	services.SendJSON(w, http.StatusOK, listResponse[models.Transaction]{Data: transactions, Meta: meta})
}

// GetTransaction returns one transaction
// @Summary Get a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "transactions.show"

	t, ok := h.ownedTransaction(w, r, op)
	if !ok {
		return
	}
	services.SendJSON(w, http.StatusOK, t)
}

// UpdateTransaction edits a transaction description
// @Summary Update a transaction
// @Description Only the description can change; amounts and balances are untouched
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param transaction body UpdateTransactionRequest true "New description"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "transactions.update"

	t, ok := h.ownedTransaction(w, r, op)
	if !ok {
		return
	}

	var req UpdateTransactionRequest
	if !h.reader.decode(w, r, &req) {
		return
	}

	updated, err := h.transactions.UpdateTransaction(r.Context(), t.ID, req.Description)
	if err != nil {
		services.SendServiceError(w, err, op+".error")
		return
	}
	services.SendJSON(w, http.StatusOK, updated)
}

// DeleteTransaction removes a transaction from the log
// @Summary Delete a transaction
// @Tags transactions
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 204
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "transactions.delete"

	t, ok := h.ownedTransaction(w, r, op)
	if !ok {
		return
	}

	if err := h.transactions.DeleteTransaction(r.Context(), t.ID); err != nil {
		services.SendServiceError(w, err, op+".error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authorizeAccount checks that the authenticated user owns accountID.
func (h *TransactionHandler) authorizeAccount(w http.ResponseWriter, r *http.Request, accountID, op string) (string, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return "", false
	}

	ownerID, err := h.accounts.ResolveOwner(r.Context(), accountID)
	if errors.Is(err, services.ErrNotFound) {
		services.SendErrorResponse(w, op+".account.notfound", http.StatusNotFound, nil)
		return "", false
	}
	if err != nil {
		services.SendServiceError(w, err, op+".error")
		return "", false
	}
	if ownerID != userID {
		services.SendErrorResponse(w, "account.forbidden", http.StatusForbidden, nil)
		return "", false
	}
	return userID, true
}

// ownedTransaction loads the {id} transaction and checks that the
// authenticated user owns the account it was posted against.
func (h *TransactionHandler) ownedTransaction(w http.ResponseWriter, r *http.Request, op string) (*models.Transaction, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}

	t, err := h.transactions.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			services.SendErrorResponse(w, op+".notfound", http.StatusNotFound, nil)
			return nil, false
		}
		services.SendServiceError(w, err, op+".error")
		return nil, false
	}

	ownerID, err := h.accounts.ResolveOwner(r.Context(), t.AccountID)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		services.SendServiceError(w, err, op+".error")
		return nil, false
	}
	if ownerID != userID {
		services.SendErrorResponse(w, "account.forbidden", http.StatusForbidden, nil)
		return nil, false
	}
	return t, true
}
