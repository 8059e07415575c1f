package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartwise/backend/internal/domain"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "data", "cartwise.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// exerciseRepository runs the shared repository contract against any backend
func exerciseRepository(t *testing.T, repo domain.ShoppingListRepository) {
	ctx := context.Background()

	t.Run("create and get list", func(t *testing.T) {
		list := &domain.ShoppingList{Name: "Haftalık"}
		require.NoError(t, repo.CreateList(ctx, list))
		assert.NotEmpty(t, list.ID)
		assert.False(t, list.CreatedAt.IsZero())

		got, err := repo.GetList(ctx, list.ID)
		require.NoError(t, err)
		assert.Equal(t, "Haftalık", got.Name)
		assert.WithinDuration(t, list.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("unknown list", func(t *testing.T) {
		_, err := repo.GetList(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrListNotFound)

		items, err := repo.GetLineItemsForList(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("items keep insertion order", func(t *testing.T) {
		list := &domain.ShoppingList{Name: "Order"}
		require.NoError(t, repo.CreateList(ctx, list))

		names := []string{"Süt", "Ekmek", "Çay", "Süt"}
		for _, name := range names {
			item := &domain.LineItem{ListID: list.ID, Name: name, Quantity: 1, Unit: "adet", TotalPrice: 10}
			require.NoError(t, repo.AddItem(ctx, item))
			assert.NotEmpty(t, item.ID)
		}

		items, err := repo.GetLineItemsForList(ctx, list.ID)
		require.NoError(t, err)
		require.Len(t, items, len(names))
		for i, name := range names {
			assert.Equal(t, name, items[i].Name)
			assert.Equal(t, list.ID, items[i].ListID)
		}
	})

	t.Run("add item to unknown list", func(t *testing.T) {
		err := repo.AddItem(ctx, &domain.LineItem{ListID: "missing", Name: "Süt", Quantity: 1})
		assert.ErrorIs(t, err, domain.ErrListNotFound)
	})

	t.Run("delete item", func(t *testing.T) {
		list := &domain.ShoppingList{Name: "Delete"}
		require.NoError(t, repo.CreateList(ctx, list))
		item := &domain.LineItem{ListID: list.ID, Name: "Yumurta", Quantity: 10, TotalPrice: 45.5}
		require.NoError(t, repo.AddItem(ctx, item))

		require.NoError(t, repo.DeleteItem(ctx, list.ID, item.ID))
		assert.ErrorIs(t, repo.DeleteItem(ctx, list.ID, item.ID), domain.ErrItemNotFound)

		items, err := repo.GetLineItemsForList(ctx, list.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("changes notify subscribers", func(t *testing.T) {
		list := &domain.ShoppingList{Name: "Watch"}
		require.NoError(t, repo.CreateList(ctx, list))

		changes, unsubscribe := repo.Subscribe(list.ID)
		defer unsubscribe()

		item := &domain.LineItem{ListID: list.ID, Name: "Peynir", Quantity: 1}
		require.NoError(t, repo.AddItem(ctx, item))
		assert.True(t, receives(changes), "add should notify")

		require.NoError(t, repo.DeleteItem(ctx, list.ID, item.ID))
		assert.True(t, receives(changes), "delete should notify")
	})
}

func TestSQLiteRepository(t *testing.T) {
	exerciseRepository(t, newSQLiteRepo(t))
}

func TestSQLiteRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cartwise.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	list := &domain.ShoppingList{Name: "Kalıcı"}
	require.NoError(t, repo.CreateList(ctx, list))
	require.NoError(t, repo.AddItem(ctx, &domain.LineItem{ListID: list.ID, Name: "Un", Quantity: 1, TotalPrice: 20}))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(ctx, path, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	items, err := reopened.GetLineItemsForList(ctx, list.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Un", items[0].Name)
	assert.Equal(t, 20.0, items[0].TotalPrice)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestOpen_DefaultsToSQLite(t *testing.T) {
	repo, err := Open(context.Background(), Config{SQLitePath: filepath.Join(t.TempDir(), "x.db")}, zerolog.Nop())
	require.NoError(t, err)
	defer repo.Close()

	_, ok := repo.(*SQLiteRepository)
	assert.True(t, ok)
}
