package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bankledger/backend/internal/database"
	"github.com/bankledger/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// prefixVerifier accepts tokens of the form "user:<id>".
type prefixVerifier struct{}

func (prefixVerifier) VerifyAccessToken(_ context.Context, token string) (string, error) {
	userID, ok := strings.CutPrefix(token, "user:")
	if !ok || userID == "" {
		return "", errors.New("bad token")
	}
	return userID, nil
}

type apiHarness struct {
	router http.Handler
	seq    int
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 8*1024)
	viper.Set("argon2.threads", 1)

	ctx := context.Background()
	db, err := database.Open(ctx, &database.DBConfig{
		Driver:      database.DriverSQLite,
		DSN:         "file::memory:?_foreign_keys=on",
		PingTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	users := services.NewUserService(db, nil)
	accounts := services.NewAccountService(db)
	engine := services.NewTransactionService(db, accounts, database.TxOptions(database.DriverSQLite))

	h := Handlers{
		Auth:         NewAuthHandler(services.NewAuthService(db, nil, users), 0),
		Users:        NewUserHandler(users, 0),
		Accounts:     NewAccountHandler(accounts, 0),
		Cards:        NewCardHandler(services.NewCardService(db), accounts, 0),
		Transactions: NewTransactionHandler(engine, accounts, 0),
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		RegisterRoutes(r, h, prefixVerifier{}, services.NewIdempotencyStore(nil, 0))
	})
	return &apiHarness{router: r}
}

func (a *apiHarness) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer user:"+userID)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// holder registers a user through the API and opens one account for it.
func (a *apiHarness) holder(t *testing.T) (userID, accountID string) {
	t.Helper()
	a.seq++
	document := strings.Repeat("0", 10) + string(rune('0'+a.seq))

	w := a.do(t, http.MethodPost, "/users", "", map[string]string{
		"name":     "Holder",
		"document": document,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var user struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &user)

	w = a.do(t, http.MethodPost, "/accounts", user.ID, map[string]string{
		"branch":  "001",
		"account": "000000" + string(rune('0'+a.seq)) + "-0",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var account struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &account)
	return user.ID, account.ID
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp services.ErrorResponse
	decodeBody(t, w, &resp)
	return resp.Message
}
