package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestSession(userID string) *domain.Session {
	s := domain.NewSession(userID)
	s.StartOrder()
	s.CustomerName = "Ana"
	s.Step = domain.StepItems
	s.Cart = domain.Cart{{Product: "Chorizo", Unit: domain.UnitKilograms, Quantity: decimal.RequireFromString("0.5")}}
	return s
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	tests := []struct {
		name    string
		session *domain.Session
	}{
		{name: "free mode session", session: domain.NewSession("whatsapp:+34600000001")},
		{name: "order with cart", session: newTestSession("whatsapp:+34600000002")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, tt.session, time.Minute))

			got, err := store.Get(ctx, tt.session.UserID)
			require.NoError(t, err)
			assert.Equal(t, tt.session.UserID, got.UserID)
			assert.Equal(t, tt.session.Mode, got.Mode)
			assert.Equal(t, tt.session.Step, got.Step)
			assert.Equal(t, tt.session.CustomerName, got.CustomerName)
			require.Len(t, got.Cart, len(tt.session.Cart))
			for i := range got.Cart {
				assert.True(t, tt.session.Cart[i].Quantity.Equal(got.Cart[i].Quantity))
			}
		})
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newTestSession("u1"), time.Minute))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	got.CustomerName = "changed"

	again, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", again.CustomerName)
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_Expiration(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, domain.NewSession("u1"), time.Minute))

	now = now.Add(30 * time.Second)
	_, err := store.Get(ctx, "u1")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = store.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.Equal(t, 1, store.Size())
	store.evictExpired()
	assert.Equal(t, 0, store.Size())
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewSession("u1"), time.Minute))
	require.NoError(t, store.Delete(ctx, "u1"))

	_, err := store.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// Deleting twice is not an error
	assert.NoError(t, store.Delete(ctx, "u1"))
}

func TestMemoryStore_CleanupGoroutine(t *testing.T) {
	store := NewMemoryStore(5 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewSession("u1"), time.Millisecond))

	assert.Eventually(t, func() bool { return store.Size() == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			userID := string(rune('a' + id))
			if err := store.Save(ctx, domain.NewSession(userID), time.Minute); err != nil {
				t.Errorf("concurrent Save() error = %v", err)
			}
			if _, err := store.Get(ctx, userID); err != nil {
				t.Errorf("concurrent Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, store.Size())
}
