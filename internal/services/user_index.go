package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/storage"
	apperrors "github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/errors"
)

const (
	userIndexPrefix = "user_posts:"

	// The index expires on its own fixed schedule, independent of the
	// per-record TTLs of the shares it references.
	userIndexTTL = 30 * 24 * time.Hour
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9-]{1,50}$`)

// UserIndex maintains the per-user list of share ids, stored as a JSON
// array under user_posts:<lowercased-username>.
type UserIndex struct {
	kv storage.KV
}

func NewUserIndex(kv storage.KV) *UserIndex {
	return &UserIndex{kv: kv}
}

// NormalizeUsername validates the username constraint (alphanumeric and
// hyphen, 1-50 characters) and lowercases it. Violations are rejected
// before any store access.
func NormalizeUsername(username string) (string, error) {
	if !usernamePattern.MatchString(username) {
		return "", apperrors.Validation("Username must be 1-50 alphanumeric or hyphen characters")
	}
	return strings.ToLower(username), nil
}

func userIndexKey(normalized string) string {
	return userIndexPrefix + normalized
}

func (u *UserIndex) load(ctx context.Context, key string) ([]string, error) {
	raw, found, err := u.kv.Get(ctx, key)
	if err != nil {
		return nil, apperrors.Storage("Failed to read user index: " + err.Error())
	}
	if !found {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, apperrors.Storage("Failed to decode user index: " + err.Error())
	}
	return ids, nil
}

func (u *UserIndex) write(ctx context.Context, key string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return apperrors.Storage("Failed to encode user index: " + err.Error())
	}
	if err := u.kv.Put(ctx, key, string(raw), userIndexTTL); err != nil {
		return apperrors.Storage("Failed to write user index: " + err.Error())
	}
	return nil
}

// AddPost appends the share id to the user's index. Adding an id that is
// already present is a no-op with no underlying write.
func (u *UserIndex) AddPost(ctx context.Context, username, shareID string) error {
	normalized, err := NormalizeUsername(username)
	if err != nil {
		return err
	}

	key := userIndexKey(normalized)
	ids, err := u.load(ctx, key)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if id == shareID {
			return nil
		}
	}
	return u.write(ctx, key, append(ids, shareID))
}

// RemovePost drops the share id from the user's index. Removing the last
// remaining id deletes the index key entirely instead of writing an empty
// array.
func (u *UserIndex) RemovePost(ctx context.Context, username, shareID string) error {
	normalized, err := NormalizeUsername(username)
	if err != nil {
		return err
	}

	key := userIndexKey(normalized)
	ids, err := u.load(ctx, key)
	if err != nil {
		return err
	}

	kept := ids[:0]
	for _, id := range ids {
		if id != shareID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}

	if len(kept) == 0 {
		if err := u.kv.Delete(ctx, key); err != nil {
			return apperrors.Storage("Failed to delete user index: " + err.Error())
		}
		return nil
	}
	return u.write(ctx, key, kept)
}

// Posts returns the user's share ids, empty when the index is absent.
func (u *UserIndex) Posts(ctx context.Context, username string) ([]string, error) {
	normalized, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return u.load(ctx, userIndexKey(normalized))
}
