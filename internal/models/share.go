package models

import "time"

// Tier controls a share's expiration policy and whether it is mirrored to
// the durable backup store.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// SourceReference points at the archived note a share was created from.
type SourceReference struct {
	NoteID string `json:"noteId"`
	Path   string `json:"path"`
}

// ShareMetadata is the immutable snapshot of the note's metadata taken at
// share time.
type ShareMetadata struct {
	Title      string    `json:"title"`
	Author     string    `json:"author,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ShareRecord is one shareable post. The id is assigned by the caller and
// never derived by the store. Timestamps serialize as RFC 3339 strings.
type ShareRecord struct {
	ID           string          `json:"id"`
	Source       SourceReference `json:"sourceReference"`
	Content      string          `json:"content"`
	Metadata     ShareMetadata   `json:"metadata"`
	PasswordHash string          `json:"passwordHash,omitempty"`
	Tier         Tier            `json:"tier"`
	ExpiresAt    *time.Time      `json:"expiresAt,omitempty"`
	ViewCount    int             `json:"viewCount"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastAccessed time.Time       `json:"lastAccessed"`
}

// Expired reports whether the record is past its expiry at the given time.
// A record with no expiry set is never expired.
func (r *ShareRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// MetadataPatch carries the mutable fields for UpdateMetadata. Nil fields
// are left untouched.
type MetadataPatch struct {
	ViewCount    *int       `json:"viewCount,omitempty"`
	LastAccessed *time.Time `json:"lastAccessed,omitempty"`
}

// MigrationResult reports a completed tier migration.
type MigrationResult struct {
	ID        string    `json:"id"`
	FromTier  Tier      `json:"fromTier"`
	ToTier    Tier      `json:"toTier"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CleanupResult reports an expiry sweep. A per-record failure increments
// Errors without aborting the sweep.
type CleanupResult struct {
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}
