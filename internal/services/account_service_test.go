package services

import (
	"context"
	"testing"

	"github.com/bankledger/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	userID, accountID := f.holder(t, "Ana")

	t.Run("resolve owner", func(t *testing.T) {
		owner, err := f.accounts.ResolveOwner(ctx, accountID)
		require.NoError(t, err)
		assert.Equal(t, userID, owner)

		_, err = f.accounts.ResolveOwner(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate account number", func(t *testing.T) {
		existing, err := f.accounts.Get(ctx, accountID)
		require.NoError(t, err)

		_, err = f.accounts.Create(ctx, userID, AccountInput{Branch: "002", Account: existing.Account})
		assertCode(t, err, ErrConflict, "account.create.exists")
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.accounts.Create(ctx, "missing", AccountInput{Branch: "001", Account: "7654321-0"})
		assertCode(t, err, ErrNotFound, "account.create.user.notfound")
	})

	t.Run("list update delete", func(t *testing.T) {
		second, err := f.accounts.Create(ctx, userID, AccountInput{Branch: "003", Account: "1111111-1"})
		require.NoError(t, err)

		accounts, meta, err := f.accounts.List(ctx, userID, Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, accounts, 2)
		assert.Equal(t, 2, meta.Total)

		updated, err := f.accounts.Update(ctx, second.ID, AccountInput{Branch: "004", Account: "2222222-2"})
		require.NoError(t, err)
		assert.Equal(t, "004", updated.Branch)
		assert.Equal(t, "2222222-2", updated.Account)

		require.NoError(t, f.accounts.Delete(ctx, second.ID))
		_, err = f.accounts.Get(ctx, second.ID)
		assertCode(t, err, ErrNotFound, "account.show.notfound")
	})
}

func TestCardService(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t)
	userID, accountID := f.holder(t, "Ana")
	cards := NewCardService(f.db)

	physical, err := cards.Create(ctx, userID, accountID, CardInput{Type: models.CardTypePhysical, Number: "4111111111111111", CVV: "123"})
	require.NoError(t, err)
	assert.Equal(t, "1111", physical.Number)

	t.Run("only one physical card per account", func(t *testing.T) {
		_, err := cards.Create(ctx, userID, accountID, CardInput{Type: models.CardTypePhysical, Number: "5500000000000004", CVV: "456"})
		assertCode(t, err, ErrConflict, "card.create.physical.exists")
	})

	t.Run("virtual cards are unlimited", func(t *testing.T) {
		for _, number := range []string{"5500000000000004", "340000000000009"} {
			_, err := cards.Create(ctx, userID, accountID, CardInput{Type: models.CardTypeVirtual, Number: number, CVV: "456"})
			require.NoError(t, err)
		}

		list, meta, err := cards.ListByAccount(ctx, accountID, Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, meta.Total)
		for _, c := range list {
			assert.Len(t, c.Number, 4)
		}

		byUser, _, err := cards.ListByUser(ctx, userID, Page{Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, byUser, 3)
	})

	t.Run("turning a virtual card physical conflicts", func(t *testing.T) {
		virtual, err := cards.Create(ctx, userID, accountID, CardInput{Type: models.CardTypeVirtual, Number: "6011000000000004", CVV: "789"})
		require.NoError(t, err)

		_, err = cards.Update(ctx, virtual.ID, CardUpdateInput{Type: models.CardTypePhysical})
		assertCode(t, err, ErrConflict, "card.update.physical.exists")

		require.NoError(t, cards.Delete(ctx, virtual.ID))
		err = cards.Delete(ctx, virtual.ID)
		assertCode(t, err, ErrNotFound, "card.delete.notfound")
	})

	t.Run("card numbers are masked on read", func(t *testing.T) {
		got, err := cards.Get(ctx, physical.ID)
		require.NoError(t, err)
		assert.Equal(t, "1111", got.Number)
	})
}
