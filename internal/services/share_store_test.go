package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/models"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/storage"
	apperrors "github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/errors"
)

func newTestStore() (*ShareStore, *storage.MemoryKV, *storage.MemoryBlob) {
	kv := storage.NewMemoryKV()
	blob := storage.NewMemoryBlob()
	return NewShareStore(kv, blob, zerolog.Nop()), kv, blob
}

func testRecord(id string, tier models.Tier) *models.ShareRecord {
	now := time.Now()
	return &models.ShareRecord{
		ID:      id,
		Source:  models.SourceReference{NoteID: "note-1", Path: "archive/note-1.md"},
		Content: "# archived post",
		Metadata: models.ShareMetadata{
			Title:      "Archived Post",
			Author:     "alice",
			CreatedAt:  now,
			ModifiedAt: now,
		},
		Tier:         tier,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

func TestSave_FreeTierDefaultTTL(t *testing.T) {
	store, kv, blob := newTestStore()
	ctx := context.Background()

	rec := testRecord("free-1", models.TierFree)
	require.NoError(t, store.Save(ctx, rec))

	ttl, ok := kv.LastTTL("share:free-1")
	require.True(t, ok)
	assert.Equal(t, freeTTL, ttl)

	require.NotNil(t, rec.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(freeTTL), *rec.ExpiresAt, time.Minute)

	// Free tier is never mirrored to the backup store
	assert.Equal(t, 0, blob.Len())
}

func TestSave_FreeTierHonorsExistingExpiry(t *testing.T) {
	store, kv, _ := newTestStore()
	ctx := context.Background()

	rec := testRecord("free-2", models.TierFree)
	exp := time.Now().Add(10 * time.Minute)
	rec.ExpiresAt = &exp
	require.NoError(t, store.Save(ctx, rec))

	ttl, ok := kv.LastTTL("share:free-2")
	require.True(t, ok)
	assert.InDelta(t, (10 * time.Minute).Seconds(), ttl.Seconds(), 2)
}

func TestSave_ProTierRenewsAndBacksUp(t *testing.T) {
	store, kv, blob := newTestStore()
	ctx := context.Background()

	rec := testRecord("pro-1", models.TierPro)
	stale := time.Now().Add(time.Hour)
	rec.ExpiresAt = &stale
	require.NoError(t, store.Save(ctx, rec))

	ttl, ok := kv.LastTTL("share:pro-1")
	require.True(t, ok)
	assert.Equal(t, proTTL, ttl)

	// Pro expiry is recomputed on every save, ignoring the previous value
	require.NotNil(t, rec.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(proTTL), *rec.ExpiresAt, time.Minute)

	data, found, err := blob.Get(ctx, "shares/pro-1.json")
	require.NoError(t, err)
	require.True(t, found)

	var stored models.ShareRecord
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "pro-1", stored.ID)
	assert.Equal(t, models.TierPro, stored.Tier)
}

func TestSave_BackupFailureIsNotFatal(t *testing.T) {
	store, _, blob := newTestStore()
	blob.FailPuts = true

	rec := testRecord("pro-2", models.TierPro)
	assert.NoError(t, store.Save(context.Background(), rec))
}

func TestSave_Validation(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	err := store.Save(ctx, testRecord("", models.TierFree))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	err = store.Save(ctx, testRecord("x", models.Tier("platinum")))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestGet_PrimaryHit(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	rec := testRecord("hit-1", models.TierFree)
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, "hit-1")
	require.NoError(t, err)
	assert.Equal(t, "hit-1", got.ID)
	assert.Equal(t, "# archived post", got.Content)
}

func TestGet_FallsBackToBackupAndRepopulates(t *testing.T) {
	store, kv, blob := newTestStore()
	ctx := context.Background()

	// Backup copy exists, primary entry has lapsed
	rec := testRecord("pro-3", models.TierPro)
	exp := time.Now().Add(proTTL)
	rec.ExpiresAt = &exp
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, blob.Put(ctx, "shares/pro-3.json", raw, "application/json", nil))

	got, err := store.Get(ctx, "pro-3")
	require.NoError(t, err)
	assert.Equal(t, "pro-3", got.ID)

	// The primary was repopulated with a fresh pro TTL
	_, found, err := kv.Get(ctx, "share:pro-3")
	require.NoError(t, err)
	assert.True(t, found)

	ttl, ok := kv.LastTTL("share:pro-3")
	require.True(t, ok)
	assert.Equal(t, proTTL, ttl)
}

func TestGet_NotFoundAnywhere(t *testing.T) {
	store, _, _ := newTestStore()

	_, err := store.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.Equal(t, "Share not found", err.Error())
}

func TestGet_BackupReadFailureIsNotFound(t *testing.T) {
	store, _, blob := newTestStore()
	blob.FailGets = true

	_, err := store.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDelete_RemovesBothCopies(t *testing.T) {
	store, kv, blob := newTestStore()
	ctx := context.Background()

	rec := testRecord("pro-4", models.TierPro)
	require.NoError(t, store.Save(ctx, rec))
	require.Equal(t, 1, blob.Len())

	require.NoError(t, store.Delete(ctx, "pro-4"))

	_, found, err := kv.Get(ctx, "share:pro-4")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, blob.Len())
}

func TestDelete_BackupFailureIsNotFatal(t *testing.T) {
	store, _, blob := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRecord("pro-5", models.TierPro)))
	blob.FailDeletes = true

	assert.NoError(t, store.Delete(ctx, "pro-5"))
}

func TestUpdateMetadata_MutableFieldsOnly(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	rec := testRecord("meta-1", models.TierFree)
	require.NoError(t, store.Save(ctx, rec))

	views := 7
	accessed := time.Now().Add(time.Minute).UTC()
	patch := models.MetadataPatch{ViewCount: &views, LastAccessed: &accessed}
	require.NoError(t, store.UpdateMetadata(ctx, "meta-1", patch))

	got, err := store.Get(ctx, "meta-1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.ViewCount)
	assert.Equal(t, accessed.Format(time.RFC3339), got.LastAccessed.Format(time.RFC3339))
	// Immutable snapshot untouched
	assert.Equal(t, "# archived post", got.Content)
	assert.Equal(t, "Archived Post", got.Metadata.Title)
}

func TestUpdateMetadata_NotFound(t *testing.T) {
	store, _, _ := newTestStore()

	views := 1
	err := store.UpdateMetadata(context.Background(), "ghost", models.MetadataPatch{ViewCount: &views})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestMigrateTier_FreeToPro(t *testing.T) {
	store, kv, blob := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRecord("mig-1", models.TierFree)))
	require.Equal(t, 0, blob.Len())

	result, err := store.MigrateTier(ctx, "mig-1", models.TierFree, models.TierPro)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, result.FromTier)
	assert.Equal(t, models.TierPro, result.ToTier)
	assert.WithinDuration(t, time.Now().Add(proTTL), result.ExpiresAt, time.Minute)

	// The new tier's backup rule kicked in
	assert.Equal(t, 1, blob.Len())

	ttl, ok := kv.LastTTL("share:mig-1")
	require.True(t, ok)
	assert.Equal(t, proTTL, ttl)
}

func TestMigrateTier_ProToFree(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRecord("mig-2", models.TierPro)))

	result, err := store.MigrateTier(ctx, "mig-2", models.TierPro, models.TierFree)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(freeTTL), result.ExpiresAt, time.Minute)
}

func TestMigrateTier_TierMismatch(t *testing.T) {
	store, _, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRecord("mig-3", models.TierFree)))

	_, err := store.MigrateTier(ctx, "mig-3", models.TierPro, models.TierFree)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCleanupExpired(t *testing.T) {
	store, kv, _ := newTestStore()
	ctx := context.Background()

	// Live record
	require.NoError(t, store.Save(ctx, testRecord("live-1", models.TierFree)))

	// Expired record, planted directly so the store TTL clamp doesn't drop it
	expired := testRecord("dead-1", models.TierFree)
	past := time.Now().Add(-time.Hour)
	expired.ExpiresAt = &past
	raw, err := json.Marshal(expired)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, "share:dead-1", string(raw), 0))

	// Unreadable record counts as an error without aborting the sweep
	require.NoError(t, kv.Put(ctx, "share:bad-1", "{not json", 0))

	result, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 1, result.Errors)

	_, found, err := kv.Get(ctx, "share:dead-1")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = kv.Get(ctx, "share:live-1")
	require.NoError(t, err)
	assert.True(t, found)
}
