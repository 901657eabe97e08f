package contextcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ether/internal/config"
	"ether/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(config.DefaultCacheConfig(), nil)
	require.NoError(t, err)
	return c
}

func constFetch(value string) FetchFunc {
	return func(ctx context.Context) (string, error) { return value, nil }
}

func failFetch(ctx context.Context) (string, error) {
	return "", fmt.Errorf("source unreachable")
}

func TestGetCachesValue(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "payload", nil
	}

	res, err := c.Get(ctx, types.SourceWeb, "Some Query", fetch)
	require.NoError(t, err)
	assert.Equal(t, "payload", res.Value)
	assert.False(t, res.Miss)

	// Same query with different casing and spacing hits the same entry.
	res, err = c.Get(ctx, types.SourceWeb, "  some   QUERY ", fetch)
	require.NoError(t, err)
	assert.Equal(t, "payload", res.Value)
	assert.Equal(t, 1, calls, "second lookup must be served from cache")
}

func TestExpiredEntryRefetched(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }

	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return fmt.Sprintf("payload-%d", calls), nil
	}

	res, err := c.Get(ctx, types.SourceWeather, "boston", fetch)
	require.NoError(t, err)
	assert.Equal(t, "payload-1", res.Value)

	// Just before expiry the entry is still served.
	c.now = func() time.Time { return base.Add(20*time.Minute - time.Second) }
	res, err = c.Get(ctx, types.SourceWeather, "boston", fetch)
	require.NoError(t, err)
	assert.Equal(t, "payload-1", res.Value)
	assert.Equal(t, 1, calls)

	// At exactly fetchedAt+ttl the entry is stale and must be replaced.
	c.now = func() time.Time { return base.Add(20 * time.Minute) }
	res, err = c.Get(ctx, types.SourceWeather, "boston", fetch)
	require.NoError(t, err)
	assert.Equal(t, "payload-2", res.Value)
	assert.Equal(t, 2, calls)
}

func TestConcurrentRequestsShareOneFetch(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var fetches int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&fetches, 1)
		close(started)
		<-release
		return "shared", nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]Result, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Get(ctx, types.SourceNews, "ai", fetch)
			require.NoError(t, err)
			results[i] = res
		}(i)
	}

	// Let the first fetch start, give the rest time to pile up behind it,
	// then release.
	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches), "exactly one underlying fetch")
	for _, res := range results {
		assert.Equal(t, "shared", res.Value)
	}
}

func TestFailedFetchNegativeCached(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }

	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "", fmt.Errorf("boom")
	}

	res, err := c.Get(ctx, types.SourceWeather, "nowhere", fetch)
	require.NoError(t, err, "a failed fetch is a miss, not an error")
	assert.True(t, res.Miss)

	// Within the negative TTL the failure is served from cache.
	c.now = func() time.Time { return base.Add(time.Minute) }
	res, err = c.Get(ctx, types.SourceWeather, "nowhere", fetch)
	require.NoError(t, err)
	assert.True(t, res.Miss)
	assert.Equal(t, 1, calls)

	// After the negative TTL the source is retried.
	c.now = func() time.Time { return base.Add(3 * time.Minute) }
	_, err = c.Get(ctx, types.SourceWeather, "nowhere", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLRUEviction(t *testing.T) {
	cfg := config.DefaultCacheConfig()
	cfg.MaxEntriesPerSource = 3
	c, err := New(cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Get(ctx, types.SourceWeb, fmt.Sprintf("query-%d", i), constFetch("v"))
		require.NoError(t, err)
	}
	require.Equal(t, 3, c.Len(types.SourceWeb))

	// Touch query-0 so query-1 becomes least recently used.
	_, err = c.Get(ctx, types.SourceWeb, "query-0", constFetch("v"))
	require.NoError(t, err)

	// Inserting a fourth entry evicts query-1.
	_, err = c.Get(ctx, types.SourceWeb, "query-3", constFetch("v"))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len(types.SourceWeb))

	refetched := 0
	_, err = c.Get(ctx, types.SourceWeb, "query-1", func(ctx context.Context) (string, error) {
		refetched++
		return "v", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, refetched, "evicted entry must trigger a fresh fetch")
}

func TestUnknownSourceRejected(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), types.SourceType("astrology"), "q", failFetch)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello world"},
		{"  MANY    spaces \t here ", "many spaces here"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
