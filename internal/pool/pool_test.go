package pool

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeConn is a Conn that only tracks whether it has been closed.
type fakeConn struct {
	id     int
	closed atomic.Bool
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	return nil, errors.New("fakeConn: no queries")
}

func (c *fakeConn) Begin(ctx context.Context) (Tx, error) {
	return nil, errors.New("fakeConn: no transactions")
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

// Tx interface compile check against database/sql.
var _ Tx = (*sql.Tx)(nil)
var _ Rows = (*sql.Rows)(nil)

// fakeDialer counts dials and can be made to fail.
type fakeDialer struct {
	mu       sync.Mutex
	dials    int
	failNext int
	conns    []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failNext > 0 {
		d.failNext--
		return nil, errors.New("dial refused")
	}
	c := &fakeConn{id: d.dials}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func newTestPool(t *testing.T, d Dialer, cfg Config) *Pool {
	t.Helper()
	p, err := New(context.Background(), d, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNewPreOpensMinSessions(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 2, Max: 4})
	if got := d.dialCount(); got != 2 {
		t.Errorf("dials after New = %d, want 2", got)
	}
	busy, idle := p.Stats()
	if busy != 0 || idle != 2 {
		t.Errorf("Stats = (%d busy, %d idle), want (0, 2)", busy, idle)
	}
}

func TestNewFailsWhenInitialDialFails(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{failNext: 1}
	_, err := New(context.Background(), d, Config{Min: 1, Max: 1}, zerolog.Nop())
	if err == nil {
		t.Fatal("New succeeded despite dial failure")
	}
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 1, Max: 2})

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if busy, idle := p.Stats(); busy != 1 || idle != 0 {
		t.Errorf("Stats after acquire = (%d, %d), want (1, 0)", busy, idle)
	}
	p.Release(s)
	if busy, idle := p.Stats(); busy != 0 || idle != 1 {
		t.Errorf("Stats after release = (%d, %d), want (0, 1)", busy, idle)
	}
	// The idle session is reused, not redialed.
	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if s2 != s {
		t.Error("expected the released session to be reused")
	}
	p.Release(s2)
	if got := d.dialCount(); got != 1 {
		t.Errorf("dials = %d, want 1 (reuse, not redial)", got)
	}
}

func TestAcquireBlocksAtMaxUntilRelease(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 2, Max: 2, AcquireTimeout: 5 * time.Second})

	s1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}

	acquired := make(chan *Session)
	go func() {
		s, err := p.Acquire(context.Background())
		if err != nil {
			t.Errorf("Acquire 3: %v", err)
		}
		acquired <- s
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire succeeded while pool was exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(s1)
	select {
	case s3 := <-acquired:
		p.Release(s3)
	case <-time.After(2 * time.Second):
		t.Fatal("third acquire did not unblock after release")
	}
	p.Release(s2)
}

func TestAcquireTimesOutWhenExhausted(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 1, Max: 1, AcquireTimeout: 30 * time.Millisecond})

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	start := time.Now()
	_, err = p.Acquire(context.Background())
	if err == nil {
		t.Fatal("second acquire succeeded on an exhausted pool")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded in chain", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("acquire blocked %v, want ~30ms", elapsed)
	}
	p.Release(s)
}

func TestPoisonedSessionDiscardedAndReplacedLazily(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 1, Max: 2})

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	conn := s.Conn().(*fakeConn)
	s.Poison()
	p.Release(s)

	if !conn.closed.Load() {
		t.Error("poisoned session's connection was not closed on release")
	}
	if busy, idle := p.Stats(); busy != 0 || idle != 0 {
		t.Errorf("Stats after discarding = (%d, %d), want (0, 0)", busy, idle)
	}
	if got := d.dialCount(); got != 1 {
		t.Errorf("dials = %d, want 1 (replacement must be lazy)", got)
	}

	// Next acquire opens the replacement.
	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after discard: %v", err)
	}
	if got := d.dialCount(); got != 2 {
		t.Errorf("dials = %d, want 2", got)
	}
	p.Release(s2)
}

func TestBrokenSessionNotReused(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 1, Max: 1})

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	s.MarkBroken()
	p.Release(s)

	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if s2 == s {
		t.Error("broken session was handed out again")
	}
	p.Release(s2)
}

func TestDialFailureRetriedThenReported(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 1, Max: 2})

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Second acquire must dial; make every attempt fail.
	d.mu.Lock()
	d.failNext = dialRetries + 1
	d.mu.Unlock()

	before := d.dialCount()
	_, err = p.Acquire(context.Background())
	if err == nil {
		t.Fatal("acquire succeeded despite dial failures")
	}
	attempts := d.dialCount() - before
	if attempts != dialRetries+1 {
		t.Errorf("dial attempts = %d, want %d", attempts, dialRetries+1)
	}

	// The slot must be returned: releasing s and re-acquiring works.
	p.Release(s)
	s2, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire after failed dial: %v", err)
	}
	p.Release(s2)
}

func TestIdleReapingKeepsMin(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 1, Max: 3, IdleTimeout: time.Nanosecond})

	var sessions []*Session
	for i := 0; i < 3; i++ {
		s, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		sessions = append(sessions, s)
	}
	time.Sleep(time.Millisecond) // exceed IdleTimeout for everything released
	for _, s := range sessions {
		p.Release(s)
	}

	_, idle := p.Stats()
	if idle > 1 {
		t.Errorf("idle after reaping = %d, want <= Min (1)", idle)
	}
}

func TestCloseClosesIdleAndRejectsAcquire(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 2, Max: 2, ShutdownGrace: time.Second})

	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, c := range d.conns {
		if !c.closed.Load() {
			t.Errorf("idle connection %d not closed on shutdown", c.id)
		}
	}
	if _, err := p.Acquire(context.Background()); err == nil {
		t.Error("Acquire succeeded on a closed pool")
	}
	// Close is idempotent.
	if err := p.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestCloseWaitsForInFlightSessions(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 1, Max: 1, ShutdownGrace: 2 * time.Second})

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	conn := s.Conn().(*fakeConn)

	closed := make(chan error)
	go func() { closed <- p.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("Close returned while a session was still in flight")
	case <-time.After(50 * time.Millisecond):
	}
	if conn.closed.Load() {
		t.Fatal("in-flight session closed before its operation released it")
	}

	p.Release(s)
	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the in-flight session was released")
	}
	if !conn.closed.Load() {
		t.Error("session not closed after release during shutdown")
	}
}

func TestCloseGivesUpAfterGrace(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 1, Max: 1, ShutdownGrace: 30 * time.Millisecond})

	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := p.Close(context.Background()); err == nil {
		t.Error("Close returned nil despite an in-flight session exceeding the grace period")
	}
	p.Release(s)
}

func TestConcurrentAcquireReleaseNeverLosesSessions(t *testing.T) {
	t.Parallel()
	d := &fakeDialer{}
	p := newTestPool(t, d, Config{Min: 2, Max: 4, AcquireTimeout: 5 * time.Second})

	var inFlight, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				s, err := p.Acquire(context.Background())
				if err != nil {
					t.Errorf("Acquire: %v", err)
					return
				}
				n := inFlight.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				inFlight.Add(-1)
				p.Release(s)
			}
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > 4 {
		t.Errorf("peak in-flight sessions = %d, exceeds max 4", got)
	}
	busy, idle := p.Stats()
	if busy != 0 {
		t.Errorf("busy = %d after all releases, want 0", busy)
	}
	if idle > 4 {
		t.Errorf("idle = %d, exceeds max 4", idle)
	}
}
