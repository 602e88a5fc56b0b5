package handlers

import (
	"net/http"

	"github.com/bankledger/backend/internal/middleware"
	"github.com/bankledger/backend/internal/services"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Accounts     *AccountHandler
	Cards        *CardHandler
	Transactions *TransactionHandler
}

// RegisterRoutes mounts the API on r. Everything except login, refresh,
// logout and registration requires a Bearer access token.
func RegisterRoutes(r chi.Router, h Handlers, verifier middleware.TokenVerifier, idempotency *services.IdempotencyStore) {
	// Public endpoints (no auth required)
	r.Post("/auth/login", h.Auth.Login)
	r.Post("/auth/refresh", h.Auth.Refresh)
	r.Post("/auth/logout", h.Auth.Logout)
	r.Post("/users", h.Users.CreateUser)

	// Protected endpoints (auth required)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(verifier))

		r.Get("/users", h.Users.ListUsers)
		r.Get("/users/{id}", h.Users.GetUser)
		r.Put("/users/{id}", h.Users.UpdateUser)
		r.Delete("/users/{id}", h.Users.DeleteUser)

		r.Get("/accounts", h.Accounts.ListAccounts)
		r.Post("/accounts", h.Accounts.CreateAccount)
		r.Route("/accounts/{accountId}", func(r chi.Router) {
			r.Get("/", h.Accounts.GetAccount)
			r.Put("/", h.Accounts.UpdateAccount)
			r.Delete("/", h.Accounts.DeleteAccount)

			r.Get("/cards", h.Cards.ListAccountCards)
			r.Post("/cards", h.Cards.CreateCard)

			r.Get("/balance", h.Transactions.GetBalance)
			r.Get("/transactions", h.Transactions.ListTransactions)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Idempotency(idempotency))
				r.Post("/transactions", h.Transactions.CreateTransaction)
				r.Post("/transfers", h.Transactions.CreateTransfer)
				r.Post("/transactions/{transactionId}/reverse", h.Transactions.ReverseTransaction)
			})
		})

		r.Get("/cards", h.Cards.ListCards)
		r.Put("/cards/{cardId}", h.Cards.UpdateCard)
		r.Delete("/cards/{cardId}", h.Cards.DeleteCard)

		r.Get("/transactions/{id}", h.Transactions.GetTransaction)
		r.Put("/transactions/{id}", h.Transactions.UpdateTransaction)
		r.Delete("/transactions/{id}", h.Transactions.DeleteTransaction)
	})
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	services.SendJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
