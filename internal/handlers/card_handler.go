package handlers

import (
	"net/http"

	"github.com/bankledger/backend/internal/models"
	"github.com/bankledger/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type CardHandler struct {
	cards    *services.CardService
	accounts *services.AccountService
	reader   *requestReader
}

func NewCardHandler(cards *services.CardService, accounts *services.AccountService, maxBodyBytes int64) *CardHandler {
	return &CardHandler{cards: cards, accounts: accounts, reader: newRequestReader(maxBodyBytes)}
}

// CreateCard issues a card for an account
// @Summary Create a card
// @Description An account holds at most one physical card
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param card body services.CardInput true "Card data"
// @Success 201 {object} models.Card
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts/{accountId}/cards [post]
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	account, ok := h.ownedAccount(w, r, "card.create")
	if !ok {
		return
	}

	var req services.CardInput
	if !h.reader.decode(w, r, &req) {
		return
	}

	card, err := h.cards.Create(r.Context(), account.UserID, account.ID, req)
	if err != nil {
		services.SendServiceError(w, err, "card.create.error")
		return
	}
	services.SendJSON(w, http.StatusCreated, card)
}

// ListAccountCards returns the cards of one account
// @Summary List account cards
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "Account ID"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page (max 100)"
// @Success 200 {object} object{data=[]models.Card,meta=services.PageMeta}
// @Router /accounts/{accountId}/cards [get]
func (h *CardHandler) ListAccountCards(w http.ResponseWriter, r *http.Request) {
	account, ok := h.ownedAccount(w, r, "card.index")
	if !ok {
		return
	}

	cards, meta, err := h.cards.ListByAccount(r.Context(), account.ID, services.ParsePagination(r.URL.Query()))
	if err != nil {
		services.SendServiceError(w, err, "card.index.error")
		return
	}
	services.SendJSON(w, http.StatusOK, listResponse[models.Card]{Data: cards, Meta: meta})
}

// ListCards returns every card of the authenticated user
// @Summary List cards
// @Tags cards
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page (max 100)"
// @Success 200 {object} object{data=[]models.Card,meta=services.PageMeta}
// @Router /cards [get]
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	cards, meta, err := h.cards.ListByUser(r.Context(), userID, services.ParsePagination(r.URL.Query()))
	if err != nil {
		services.SendServiceError(w, err, "card.index.error")
		return
	}
	services.SendJSON(w, http.StatusOK, listResponse[models.Card]{Data: cards, Meta: meta})
}

// UpdateCard changes the card type
// @Summary Update a card
// @Tags cards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param cardId path string true "Card ID"
// @Param card body services.CardUpdateInput true "Card type"
// @Success 200 {object} models.Card
// @Failure 409 {object} services.ErrorResponse
// @Router /cards/{cardId} [put]
func (h *CardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	card, ok := h.ownedCard(w, r, "card.update")
	if !ok {
		return
	}

	var req services.CardUpdateInput
	if !h.reader.decode(w, r, &req) {
		return
	}

	updated, err := h.cards.Update(r.Context(), card.ID, req)
	if err != nil {
		services.SendServiceError(w, err, "card.update.error")
		return
	}
	services.SendJSON(w, http.StatusOK, updated)
}

// DeleteCard removes a card
// @Summary Delete a card
// @Tags cards
// @Security BearerAuth
// @Param cardId path string true "Card ID"
// @Success 204
// @Router /cards/{cardId} [delete]
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	card, ok := h.ownedCard(w, r, "card.delete")
	if !ok {
		return
	}

	if err := h.cards.Delete(r.Context(), card.ID); err != nil {
		services.SendServiceError(w, err, "card.delete.error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CardHandler) ownedAccount(w http.ResponseWriter, r *http.Request, op string) (*models.Account, bool) {
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

func (h *CardHandler) ownedCard(w http.ResponseWriter, r *http.Request, op string) (*models.Card, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return nil, false
	}

	card, err := h.cards.Get(r.Context(), chi.URLParam(r, "cardId"))
	if err != nil {
		services.SendServiceError(w, err, op+".error")
		return nil, false
	}
	if card.UserID != userID {
		services.SendErrorResponse(w, "card.forbidden", http.StatusForbidden, nil)
		return nil, false
	}
	return card, true
}
