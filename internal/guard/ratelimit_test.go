package guard

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyungyunlim/obsidian-social-archiver-sub002/internal/storage"
)

func newTestLimiter() (*RateLimiter, *storage.MemoryKV) {
	kv := storage.NewMemoryKV()
	return NewRateLimiter(kv, zerolog.Nop()), kv
}

func TestCheckLimit_FreshScope(t *testing.T) {
	l, _ := newTestLimiter()

	status, err := l.CheckLimit(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, maxAttempts, status.Remaining)
}

func TestRecordAttempt_ExhaustsWindow(t *testing.T) {
	l, _ := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < maxAttempts; i++ {
		require.NoError(t, l.RecordAttempt(ctx, "203.0.113.7"))
	}

	status, err := l.CheckLimit(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 0, status.Remaining)
	assert.Greater(t, status.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, status.RetryAfter, windowDuration)
}

func TestCheckLimit_CountsDown(t *testing.T) {
	l, _ := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, l.RecordAttempt(ctx, "client"))
	require.NoError(t, l.RecordAttempt(ctx, "client"))

	status, err := l.CheckLimit(ctx, "client")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, maxAttempts-2, status.Remaining)
}

func TestCheckLimit_StaleWindowClears(t *testing.T) {
	l, kv := newTestLimiter()
	ctx := context.Background()

	stale := Window{Attempts: maxAttempts, FirstAttempt: time.Now().Add(-2 * windowDuration)}
	raw, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, kv.Put(ctx, "pwd-limit:client", string(raw), 0))

	status, err := l.CheckLimit(ctx, "client")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, maxAttempts, status.Remaining)

	// Stale state was deleted, not merely ignored
	_, found, err := kv.Get(ctx, "pwd-limit:client")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecordAttempt_StaleWindowRestarts(t *testing.T) {
	l, kv := newTestLimiter()
	ctx := context.Background()

	stale := Window{Attempts: maxAttempts, FirstAttempt: time.Now().Add(-2 * windowDuration)}
	raw, _ := json.Marshal(stale)
	require.NoError(t, kv.Put(ctx, "pwd-limit:client", string(raw), 0))

	require.NoError(t, l.RecordAttempt(ctx, "client"))

	stored, found, err := kv.Get(ctx, "pwd-limit:client")
	require.NoError(t, err)
	require.True(t, found)

	var w Window
	require.NoError(t, json.Unmarshal([]byte(stored), &w))
	assert.Equal(t, 1, w.Attempts)
	assert.WithinDuration(t, time.Now(), w.FirstAttempt, time.Minute)
}

func TestRecordAttempt_PreservesFirstAttempt(t *testing.T) {
	l, kv := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, l.RecordAttempt(ctx, "client"))

	before, _, err := kv.Get(ctx, "pwd-limit:client")
	require.NoError(t, err)
	var first Window
	require.NoError(t, json.Unmarshal([]byte(before), &first))

	require.NoError(t, l.RecordAttempt(ctx, "client"))

	after, _, err := kv.Get(ctx, "pwd-limit:client")
	require.NoError(t, err)
	var second Window
	require.NoError(t, json.Unmarshal([]byte(after), &second))

	assert.Equal(t, 2, second.Attempts)
	assert.Equal(t, first.FirstAttempt, second.FirstAttempt)

	ttl, ok := kv.LastTTL("pwd-limit:client")
	require.True(t, ok)
	assert.Equal(t, windowDuration, ttl)
}

func TestResetLimit(t *testing.T) {
	l, kv := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < maxAttempts; i++ {
		require.NoError(t, l.RecordAttempt(ctx, "client"))
	}
	require.NoError(t, l.ResetLimit(ctx, "client"))

	status, err := l.CheckLimit(ctx, "client")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, maxAttempts, status.Remaining)

	_, found, err := kv.Get(ctx, "pwd-limit:client")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCheckLimit_CorruptStateTreatedAsFresh(t *testing.T) {
	l, kv := newTestLimiter()
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "pwd-limit:client", "{not json", 0))

	status, err := l.CheckLimit(ctx, "client")
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, maxAttempts, status.Remaining)
}

func TestLimiter_ScopesAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()
	ctx := context.Background()

	for i := 0; i < maxAttempts; i++ {
		require.NoError(t, l.RecordAttempt(ctx, "a"))
	}

	statusA, err := l.CheckLimit(ctx, "a")
	require.NoError(t, err)
	assert.False(t, statusA.Allowed)

	statusB, err := l.CheckLimit(ctx, "b")
	require.NoError(t, err)
	assert.True(t, statusB.Allowed)
	assert.Equal(t, maxAttempts, statusB.Remaining)
}
