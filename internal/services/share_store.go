package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/models"
	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/storage"
	apperrors "github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/errors"
)

const (
	shareKeyPrefix  = "share:"
	backupKeyPrefix = "shares/"

	proTTL  = 365 * 24 * time.Hour
	freeTTL = 30 * 24 * time.Hour
)

// ShareStore persists ShareRecords in the primary KV store with a
// tier-dependent TTL and mirrors pro-tier records into the durable blob
// store. The primary is the source of truth for live reads; the blob store
// is a best-effort backup that lazily repopulates the primary on a miss.
type ShareStore struct {
	kv   storage.KV
	blob storage.Blob
	log  zerolog.Logger
	now  func() time.Time
}

func NewShareStore(kv storage.KV, blob storage.Blob, log zerolog.Logger) *ShareStore {
	return &ShareStore{kv: kv, blob: blob, log: log, now: time.Now}
}

func shareKey(id string) string {
	return shareKeyPrefix + id
}

func backupKey(id string) string {
	return backupKeyPrefix + id + ".json"
}

// ttlFor applies the expiration policy, setting ExpiresAt on the record as a
// side effect. Pro records renew to a full year on every save; free records
// keep whatever ExpiresAt they carry, defaulting to 30 days.
func (s *ShareStore) ttlFor(rec *models.ShareRecord) time.Duration {
	now := s.now()

	if rec.Tier == models.TierPro {
		exp := now.Add(proTTL)
		rec.ExpiresAt = &exp
		return proTTL
	}

	if rec.ExpiresAt == nil {
		exp := now.Add(freeTTL)
		rec.ExpiresAt = &exp
		return freeTTL
	}

	ttl := rec.ExpiresAt.Sub(now).Truncate(time.Second)
	if ttl <= 0 {
		// Redis treats a zero TTL as "no expiry"; clamp so an
		// already-expired record still drops out immediately.
		ttl = time.Second
	}
	return ttl
}

// writePrimary computes the TTL and writes the record into the KV store.
func (s *ShareStore) writePrimary(ctx context.Context, rec *models.ShareRecord) error {
	ttl := s.ttlFor(rec)

	raw, err := json.Marshal(rec)
	if err != nil {
		return apperrors.Storage("Failed to encode share: " + err.Error())
	}
	if err := s.kv.Put(ctx, shareKey(rec.ID), string(raw), ttl); err != nil {
		return apperrors.Storage("Failed to save share: " + err.Error())
	}
	return nil
}

// Save writes the record to the primary store and, for the pro tier,
// mirrors it to the durable backup. Backup failures are logged and never
// fail the save.
func (s *ShareStore) Save(ctx context.Context, rec *models.ShareRecord) error {
	if rec.ID == "" {
		return apperrors.Validation("Share id is required")
	}
	if !rec.Tier.Valid() {
		return apperrors.Validation("Unknown share tier: " + string(rec.Tier))
	}

	if err := s.writePrimary(ctx, rec); err != nil {
		return err
	}

	if rec.Tier == models.TierPro {
		raw, _ := json.Marshal(rec)
		err := s.blob.Put(ctx, backupKey(rec.ID), raw, "application/json", map[string]string{
			"tier":     string(rec.Tier),
			"sharedAt": rec.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			s.log.Warn().Str("share_id", rec.ID).Err(err).Msg("backup write failed")
		}
	}
	return nil
}

// Get reads from the primary store, falling back to the durable backup on a
// miss. A backup hit is written back into the primary before returning.
// Absent from both means not found; backup read errors are swallowed.
func (s *ShareStore) Get(ctx context.Context, id string) (*models.ShareRecord, error) {
	raw, found, err := s.kv.Get(ctx, shareKey(id))
	if err != nil {
		return nil, apperrors.Storage("Failed to read share: " + err.Error())
	}
	if found {
		rec := &models.ShareRecord{}
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			return nil, apperrors.Storage("Failed to decode share: " + err.Error())
		}
		return rec, nil
	}

	data, found, err := s.blob.Get(ctx, backupKey(id))
	if err != nil {
		s.log.Warn().Str("share_id", id).Err(err).Msg("backup read failed")
		return nil, apperrors.NotFound("Share not found")
	}
	if !found {
		return nil, apperrors.NotFound("Share not found")
	}

	rec := &models.ShareRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		s.log.Warn().Str("share_id", id).Err(err).Msg("backup record unreadable")
		return nil, apperrors.NotFound("Share not found")
	}

	if err := s.writePrimary(ctx, rec); err != nil {
		// The record is still served; the next read retries the repair.
		s.log.Warn().Str("share_id", id).Err(err).Msg("primary repopulation failed")
	} else {
		s.log.Info().Str("share_id", id).Msg("share restored from backup")
	}
	return rec, nil
}

// Delete removes the record from both stores. Backup deletion failures are
// logged, not fatal.
func (s *ShareStore) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, shareKey(id)); err != nil {
		return apperrors.Storage("Failed to delete share: " + err.Error())
	}
	if err := s.blob.Delete(ctx, backupKey(id)); err != nil {
		s.log.Warn().Str("share_id", id).Err(err).Msg("backup delete failed")
	}
	return nil
}

// UpdateMetadata rewrites the mutable fields only. This is a
// read-modify-write with no isolation: concurrent updates race and the
// loser is silently overwritten, which is accepted for view counters.
func (s *ShareStore) UpdateMetadata(ctx context.Context, id string, patch models.MetadataPatch) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if patch.ViewCount != nil {
		rec.ViewCount = *patch.ViewCount
	}
	if patch.LastAccessed != nil {
		rec.LastAccessed = *patch.LastAccessed
	}
	return s.Save(ctx, rec)
}

// MigrateTier reloads the record, rewrites its tier, recomputes ExpiresAt
// under the new tier's policy and re-saves, which also applies the new
// tier's backup rules.
func (s *ShareStore) MigrateTier(ctx context.Context, id string, from, to models.Tier) (*models.MigrationResult, error) {
	if !from.Valid() || !to.Valid() {
		return nil, apperrors.Validation("Unknown share tier")
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Tier != from {
		return nil, apperrors.Validation("Share is not on tier " + string(from))
	}

	rec.Tier = to
	exp := s.now().Add(freeTTL)
	if to == models.TierPro {
		exp = s.now().Add(proTTL)
	}
	rec.ExpiresAt = &exp

	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}

	return &models.MigrationResult{
		ID:        id,
		FromTier:  from,
		ToTier:    to,
		ExpiresAt: *rec.ExpiresAt,
	}, nil
}

// CleanupExpired sweeps every stored share and deletes those past their
// expiry. The key list is a snapshot: records created or removed mid-sweep
// may be skipped and are caught by the next sweep. Per-record failures
// increment Errors without aborting.
func (s *ShareStore) CleanupExpired(ctx context.Context) (models.CleanupResult, error) {
	var res models.CleanupResult

	keys, err := s.kv.List(ctx, shareKeyPrefix)
	if err != nil {
		return res, apperrors.Storage("Failed to list shares: " + err.Error())
	}

	now := s.now()
	for _, key := range keys {
		raw, found, err := s.kv.Get(ctx, key)
		if err != nil {
			res.Errors++
			continue
		}
		if !found {
			continue
		}

		rec := &models.ShareRecord{}
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			res.Errors++
			continue
		}
		if !rec.Expired(now) {
			continue
		}

		if err := s.Delete(ctx, rec.ID); err != nil {
			res.Errors++
			continue
		}
		res.Deleted++
	}
	return res, nil
}
