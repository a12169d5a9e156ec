package guard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/storage"
	apperrors "github.com/hyungyunlim/obsidian-social-archiver-sub002/pkg/errors"
)

const (
	maxAttempts    = 5
	windowDuration = time.Hour

	limitKeyPrefix = "pwd-limit:"
)

// Window is the stored rate-limit state for one scope key. A window never
// partially decays: once now - FirstAttempt exceeds the window duration the
// whole state is discarded.
type Window struct {
	Attempts     int       `json:"attempts"`
	FirstAttempt time.Time `json:"firstAttempt"`
}

// LimitStatus is the result of a CheckLimit call.
type LimitStatus struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}

// RateLimiter enforces the sliding-window brute-force limit on password
// attempts, keyed by client address. State lives in the KV store so the
// limit holds across invocations; the increment is read-modify-write with
// no isolation, so concurrent attempts may undercount. That is accepted:
// the count is a bound, not an exact tally.
type RateLimiter struct {
	kv  storage.KV
	log zerolog.Logger
	now func() time.Time
}

func NewRateLimiter(kv storage.KV, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{kv: kv, log: log, now: time.Now}
}

func limitKey(scope string) string {
	return limitKeyPrefix + scope
}

// load returns the stored window, or nil when absent or unreadable.
func (l *RateLimiter) load(ctx context.Context, scope string) (*Window, error) {
	raw, found, err := l.kv.Get(ctx, limitKey(scope))
	if err != nil {
		return nil, apperrors.Storage("Failed to read rate limit state: " + err.Error())
	}
	if !found {
		return nil, nil
	}

	var w Window
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		l.log.Warn().Str("scope", scope).Err(err).Msg("discarding unreadable rate limit state")
		return nil, nil
	}
	return &w, nil
}

func (l *RateLimiter) stale(w *Window) bool {
	return l.now().Sub(w.FirstAttempt) > windowDuration
}

// CheckLimit reports whether another attempt is allowed for the scope key.
// A stale window is deleted on sight and treated as fresh.
func (l *RateLimiter) CheckLimit(ctx context.Context, scope string) (LimitStatus, error) {
	w, err := l.load(ctx, scope)
	if err != nil {
		return LimitStatus{}, err
	}
	if w == nil {
		return LimitStatus{Allowed: true, Remaining: maxAttempts}, nil
	}

	if l.stale(w) {
		if err := l.kv.Delete(ctx, limitKey(scope)); err != nil {
			return LimitStatus{}, apperrors.Storage("Failed to clear stale rate limit: " + err.Error())
		}
		return LimitStatus{Allowed: true, Remaining: maxAttempts}, nil
	}

	remaining := maxAttempts - w.Attempts
	if remaining < 0 {
		remaining = 0
	}
	status := LimitStatus{Allowed: remaining > 0, Remaining: remaining}
	if !status.Allowed {
		status.RetryAfter = windowDuration - l.now().Sub(w.FirstAttempt)
	}
	return status, nil
}

// RecordAttempt registers a failed attempt. A fresh window opens if no state
// exists or the existing window is stale; otherwise the count increments
// with FirstAttempt preserved. The TTL is re-extended to the window
// duration either way.
func (l *RateLimiter) RecordAttempt(ctx context.Context, scope string) error {
	w, err := l.load(ctx, scope)
	if err != nil {
		return err
	}

	if w == nil || l.stale(w) {
		w = &Window{Attempts: 1, FirstAttempt: l.now()}
	} else {
		w.Attempts++
	}

	raw, err := json.Marshal(w)
	if err != nil {
		return apperrors.Storage("Failed to encode rate limit state: " + err.Error())
	}
	if err := l.kv.Put(ctx, limitKey(scope), string(raw), windowDuration); err != nil {
		return apperrors.Storage("Failed to write rate limit state: " + err.Error())
	}
	return nil
}

// ResetLimit unconditionally clears state for the scope key, used after a
// successful password check.
func (l *RateLimiter) ResetLimit(ctx context.Context, scope string) error {
	if err := l.kv.Delete(ctx, limitKey(scope)); err != nil {
		return apperrors.Storage("Failed to reset rate limit: " + err.Error())
	}
	return nil
}
