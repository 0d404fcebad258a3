package client

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"asynchttp/transfer"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
)

type PoolTestSuite struct {
	suite.Suite

	dialer *fakeDialer
	pool   *Pool
	clk    *clock.Mock
}

func TestPoolTestSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}

func (s *PoolTestSuite) SetupTest() {
	s.dialer = newFakeDialer()
	s.clk = clock.NewMock()
	s.pool = s.newPool(Options{MaxConnections: 2, MaxWaiters: 1})
}

func (s *PoolTestSuite) newPool(opts Options) *Pool {
	return newPool(pipeAddr{"test"}, s.dialer, transfer.NewCodecs(nil), slog.New(slog.NewTextHandler(io.Discard, nil)), s.clk, opts)
}

// waitUntil polls cond until it's true or the deadline passes, failing the
// test in the latter case. Used only to synchronize on internal pool state
// that has no other observable signal (a goroutine reaching the waiters
// queue).
func waitUntil(t interface{ FailNow() }, cond func() bool, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.FailNow()
	}
}

func (s *PoolTestSuite) waitersLen() int {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return s.pool.waiters.Len()
}

func (s *PoolTestSuite) availableLen() int {
	s.pool.mu.Lock()
	defer s.pool.mu.Unlock()
	return len(s.pool.available)
}

func (s *PoolTestSuite) TestAcquireDialsUpToMaxThenQueuesWaiters() {
	c1, err := s.pool.acquire(context.Background())
	s.Require().NoError(err)
	c2, err := s.pool.acquire(context.Background())
	s.Require().NoError(err)
	s.NotEqual(c1, c2)

	type result struct {
		conn *conn
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		c, err := s.pool.acquire(context.Background())
		resultCh <- result{c, err}
	}()

	waitUntil(s.T(), func() bool { return s.waitersLen() == 1 }, time.Second)

	// MaxWaiters is 1, so a further concurrent acquire must be rejected
	// immediately rather than queued.
	_, err = s.pool.acquire(context.Background())
	s.ErrorIs(err, ErrTooManyWaiters)

	s.pool.release(c1)

	res := <-resultCh
	s.Require().NoError(res.err)
	s.Equal(c1, res.conn, "release must hand off to the queued waiter, bypassing the idle list")
	s.Zero(s.availableLen())
}

func (s *PoolTestSuite) TestReleaseWithNoWaitersGoesToAvailable() {
	c1, err := s.pool.acquire(context.Background())
	s.Require().NoError(err)

	s.pool.release(c1)
	s.Equal(1, s.availableLen())

	c2, err := s.pool.acquire(context.Background())
	s.Require().NoError(err)
	s.Equal(c1, c2, "a released idle connection must be reused before dialing a new one")
}

func (s *PoolTestSuite) TestStopRejectsQueuedWaiters() {
	_, err := s.pool.acquire(context.Background())
	s.Require().NoError(err)
	_, err = s.pool.acquire(context.Background())
	s.Require().NoError(err)

	type result struct {
		conn *conn
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		c, err := s.pool.acquire(context.Background())
		resultCh <- result{c, err}
	}()
	waitUntil(s.T(), func() bool { return s.waitersLen() == 1 }, time.Second)

	s.pool.stop()

	res := <-resultCh
	s.ErrorIs(res.err, ErrClientAlreadyClosed)

	_, err = s.pool.acquire(context.Background())
	s.ErrorIs(err, ErrClientAlreadyClosed)
}

func (s *PoolTestSuite) TestAcquireContextCancelledWhileQueuedReturnsConnToPool() {
	c1, err := s.pool.acquire(context.Background())
	s.Require().NoError(err)
	_, err = s.pool.acquire(context.Background())
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		conn *conn
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		c, err := s.pool.acquire(ctx)
		resultCh <- result{c, err}
	}()
	waitUntil(s.T(), func() bool { return s.waitersLen() == 1 }, time.Second)

	cancel()
	res := <-resultCh
	s.ErrorIs(res.err, context.Canceled)
	s.Nil(res.conn)

	// The stale waiter entry is still queued; releasing c1 must discover it
	// is already satisfied and fall through to the idle list instead of
	// leaking c1.
	s.pool.release(c1)
	s.Equal(1, s.availableLen())
}

func (s *PoolTestSuite) TestOnConnDestroyedDialsReplacementForQueuedWaiter() {
	c1, err := s.pool.acquire(context.Background())
	s.Require().NoError(err)
	_, err = s.pool.acquire(context.Background())
	s.Require().NoError(err)

	type result struct {
		conn *conn
		err  error
	}
	resultCh := make(chan result, 1)
	go func() {
		c, err := s.pool.acquire(context.Background())
		resultCh <- result{c, err}
	}()
	waitUntil(s.T(), func() bool { return s.waitersLen() == 1 }, time.Second)

	c1.close(nil) // simulates the transport dying instead of a clean release

	res := <-resultCh
	s.Require().NoError(res.err)
	s.NotNil(res.conn)
	s.NotEqual(c1, res.conn, "a destroyed connection must be replaced by a fresh dial, not reused")
}
