// internal/funnel/draft/store_test.go
package draft

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/common/storage"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewStore(storage.NewRedisKV(client), time.Hour, logger.NewTestLogger(t))
	return store, mr
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// ==========================
// Load / Update / Reset Tests
// ==========================

func TestStore_Load_EmptyWhenMissing(t *testing.T) {
	store, _ := newTestStore(t)

	record := store.Load(context.Background(), "session-1")

	require.NotNil(t, record)
	assert.True(t, record.IsEmpty())
}

func TestStore_Update_PersistsAcrossLoads(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	updated := store.Update(ctx, "session-1", models.DraftPatch{
		BasementCondition: strPtr("Unfinished"),
		RenovationScope:   []string{"Full Basement Remodel"},
	})
	assert.Equal(t, "Unfinished", updated.BasementCondition)

	reloaded := store.Load(ctx, "session-1")
	assert.Equal(t, "Unfinished", reloaded.BasementCondition)
	assert.Equal(t, []string{"Full Basement Remodel"}, reloaded.RenovationScope)
}

func TestStore_Update_MergesOntoExistingDraft(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.Update(ctx, "session-1", models.DraftPatch{
		BasementCondition: strPtr("Unfinished"),
	})
	merged := store.Update(ctx, "session-1", models.DraftPatch{
		HasDesign: boolPtr(false),
		Urgency:   strPtr("asap"),
	})

	assert.Equal(t, "Unfinished", merged.BasementCondition)
	require.NotNil(t, merged.HasDesign)
	assert.False(t, *merged.HasDesign)
	assert.Equal(t, "asap", merged.Urgency)
}

func TestStore_Update_SessionsAreIsolated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.Update(ctx, "session-1", models.DraftPatch{BasementCondition: strPtr("Unfinished")})

	other := store.Load(ctx, "session-2")
	assert.True(t, other.IsEmpty())
}

func TestStore_Load_CorruptRecordStartsEmpty(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, mr.Set(keyPrefix+"session-1", "{not json"))

	record := store.Load(context.Background(), "session-1")
	assert.True(t, record.IsEmpty())
}

func TestStore_Load_StoreDownStartsEmpty(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	record := store.Load(context.Background(), "session-1")

	require.NotNil(t, record)
	assert.True(t, record.IsEmpty())
}

func TestStore_Update_StoreDownStillReturnsMerged(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	updated := store.Update(context.Background(), "session-1", models.DraftPatch{
		Email: strPtr("homeowner@example.com"),
	})

	assert.Equal(t, "homeowner@example.com", updated.Email)
}

func TestStore_Reset(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	store.Update(ctx, "session-1", models.DraftPatch{BasementCondition: strPtr("Unfinished")})
	store.Reset(ctx, "session-1")

	record := store.Load(ctx, "session-1")
	assert.True(t, record.IsEmpty())
}

func TestStore_Update_AppliesTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	store.Update(ctx, "session-1", models.DraftPatch{BasementCondition: strPtr("Unfinished")})

	mr.FastForward(2 * time.Hour)

	record := store.Load(ctx, "session-1")
	assert.True(t, record.IsEmpty())
}
