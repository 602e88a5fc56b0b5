package audit

import (
	"time"

	"github.com/bankledger/backend/internal/models"
	"go.uber.org/zap"
)

const (
	EventTransaction = "TRANSACTION"
	EventTransfer    = "TRANSFER"
	EventReversal    = "REVERSAL"
	EventError       = "ERROR"
)

type Event struct {
	Timestamp     time.Time
	EventType     string
	TransactionID string
	AccountID     string
	Amount        string
	Status        string
	Details       map[string]string
}

// Logger writes ledger audit events through the global zap logger under the
// "audit" name.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogTransaction(t *models.Transaction) {
	a.log(Event{
		Timestamp:     t.CreatedAt,
		EventType:     EventTransaction,
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		Amount:        t.Value.String(),
		Status:        "POSTED",
		Details: map[string]string{
			"type":    string(t.Type),
			"balance": t.BalanceIDSource,
		},
	})
}

func (a *Logger) LogTransfer(t *models.Transaction) {
	details := map[string]string{
		"type":         string(t.Type),
		"from_balance": t.BalanceIDSource,
	}
	if t.BalanceIDDestination != nil {
		details["to_balance"] = *t.BalanceIDDestination
	}
	a.log(Event{
		Timestamp:     t.CreatedAt,
		EventType:     EventTransfer,
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		Amount:        t.Value.String(),
		Status:        "POSTED",
		Details:       details,
	})
}

func (a *Logger) LogReversal(reversal *models.Transaction) {
	details := map[string]string{"type": string(reversal.Type)}
	if reversal.ReversedFromID != nil {
		details["reversed_from"] = *reversal.ReversedFromID
	}
	a.log(Event{
		Timestamp:     reversal.CreatedAt,
		EventType:     EventReversal,
		TransactionID: reversal.ID,
		AccountID:     reversal.AccountID,
		Amount:        reversal.Value.String(),
		Status:        "POSTED",
		Details:       details,
	})
}

func (a *Logger) LogError(operation, accountID string, err error) {
	a.log(Event{
		Timestamp: time.Now().UTC(),
		EventType: EventError,
		AccountID: accountID,
		Status:    "FAILED",
		Details: map[string]string{
			"operation": operation,
			"error":     err.Error(),
		},
	})
}

func (a *Logger) log(event Event) {
	zap.L().Named("audit").Info(event.EventType,
		zap.Time("timestamp", event.Timestamp),
		zap.String("transaction_id", event.TransactionID),
		zap.String("account_id", event.AccountID),
		zap.String("amount", event.Amount),
		zap.String("status", event.Status),
		zap.Any("details", event.Details),
	)
}
