package otp

import (
	"context"
	crand "crypto/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/settle-idm/pkg/twofa"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// issueDistinct issues a code that differs from every code in prev
func issueDistinct(t *testing.T, l *Ledger, userID uuid.UUID, prev ...string) string {
	t.Helper()
	for {
		code, err := l.Issue(context.Background(), userID, twofa.MethodEmail)
		require.NoError(t, err)
		seen := false
		for _, p := range prev {
			seen = seen || p == code
		}
		if !seen {
			return code
		}
	}
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode(crand.Reader)
		require.NoError(t, err)
		assert.True(t, WellFormed(code), code)
	}
}

func TestWellFormed(t *testing.T) {
	assert.True(t, WellFormed("000000"))
	assert.True(t, WellFormed("123456"))
	assert.False(t, WellFormed("12345"))
	assert.False(t, WellFormed("1234567"))
	assert.False(t, WellFormed("12345a"))
	assert.False(t, WellFormed(" 12345"))
	assert.False(t, WellFormed("１２３４５６"))
}

func TestHashCode(t *testing.T) {
	assert.Equal(t, HashCode("123456"), HashCode("123456"))
	assert.NotEqual(t, HashCode("123456"), HashCode("123457"))
	assert.Len(t, HashCode("123456"), 64)
}

func TestMemoryLedger(t *testing.T) {
	runLedgerSuite(t, func(t *testing.T) Repository {
		return NewMemoryRepository()
	}, func(t *testing.T) uuid.UUID {
		return uuid.New()
	})
}

func runLedgerSuite(t *testing.T, newRepo func(t *testing.T) Repository, newUser func(t *testing.T) uuid.UUID) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Ledger, *fakeClock, uuid.UUID) {
		clock := newFakeClock()
		return NewLedger(newRepo(t), WithClock(clock.Now)), clock, newUser(t)
	}

	t.Run("issue invalidates previous codes", func(t *testing.T) {
		l, _, user := setup(t)

		var codes []string
		for i := 0; i < 5; i++ {
			codes = append(codes, issueDistinct(t, l, user, codes...))
			n, err := l.Outstanding(ctx, user)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		}

		for _, stale := range codes[:4] {
			ok, err := l.Verify(ctx, user, stale)
			require.NoError(t, err)
			assert.False(t, ok, "superseded code %s must be rejected", stale)
		}
		ok, err := l.Verify(ctx, user, codes[4])
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("code verifies once", func(t *testing.T) {
		l, _, user := setup(t)
		code := issueDistinct(t, l, user)

		ok, err := l.Verify(ctx, user, code)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = l.Verify(ctx, user, code)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent verification succeeds exactly once", func(t *testing.T) {
		l, _, user := setup(t)
		code := issueDistinct(t, l, user)

		var successes atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ok, err := l.Verify(ctx, user, code)
				assert.NoError(t, err)
				if ok {
					successes.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		assert.Equal(t, int32(1), successes.Load())
	})

	t.Run("concurrent issue leaves one outstanding code", func(t *testing.T) {
		l, _, user := setup(t)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := l.Issue(ctx, user, twofa.MethodEmail)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		n, err := l.Outstanding(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("valid at nine minutes", func(t *testing.T) {
		l, clock, user := setup(t)
		code := issueDistinct(t, l, user)

		clock.Advance(9 * time.Minute)
		ok, err := l.Verify(ctx, user, code)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired after ten minutes", func(t *testing.T) {
		l, clock, user := setup(t)
		code := issueDistinct(t, l, user)

		clock.Advance(10*time.Minute + time.Millisecond)
		ok, err := l.Verify(ctx, user, code)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired at exactly ten minutes", func(t *testing.T) {
		l, clock, user := setup(t)
		code := issueDistinct(t, l, user)

		clock.Advance(10 * time.Minute)
		ok, err := l.Verify(ctx, user, code)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("codes are scoped to their user", func(t *testing.T) {
		l, _, user := setup(t)
		other := newUser(t)
		code := issueDistinct(t, l, user)

		ok, err := l.Verify(ctx, other, code)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = l.Verify(ctx, user, code)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("malformed input is rejected", func(t *testing.T) {
		l, _, user := setup(t)
		code := issueDistinct(t, l, user)

		for _, bad := range []string{"", code[:5], code + "0", " " + code[1:], "abcdef"} {
			ok, err := l.Verify(ctx, user, bad)
			require.NoError(t, err)
			assert.False(t, ok)
		}
		ok, err := l.Verify(ctx, user, code)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("invalidate", func(t *testing.T) {
		l, _, user := setup(t)
		code := issueDistinct(t, l, user)

		require.NoError(t, l.Invalidate(ctx, user))
		ok, err := l.Verify(ctx, user, code)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, l.Invalidate(ctx, user))
	})

	t.Run("purge removes used and expired codes", func(t *testing.T) {
		l, clock, user := setup(t)
		other := newUser(t)

		used := issueDistinct(t, l, user)
		ok, err := l.Verify(ctx, user, used)
		require.NoError(t, err)
		require.True(t, ok)

		_ = issueDistinct(t, l, other)
		clock.Advance(11 * time.Minute)
		fresh := issueDistinct(t, l, user)

		n, err := l.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(2))

		ok, err = l.Verify(ctx, user, fresh)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRunPurgeStops(t *testing.T) {
	l := NewLedger(NewMemoryRepository())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.RunPurge(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPurge did not stop after cancel")
	}

	l.RunPurge(context.Background(), 0)
}
