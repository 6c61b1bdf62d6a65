// Package pool implements a bounded pool of exclusively-owned database
// sessions. Sessions are loaned to exactly one in-flight operation at a time
// and returned with Release; the pool never exceeds its configured maximum
// and lazily replaces sessions discarded as broken.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// dialRetries bounds how many times a failed dial is retried during Acquire
// before the failure is reported, so outages surface as errors, not hangs.
const dialRetries = 2

// Config holds pool sizing and timing. Immutable after New.
type Config struct {
	// Min sessions are opened eagerly at startup and kept across idle reaping.
	Min int
	// Max bounds the number of sessions that can exist at once.
	Max int
	// AcquireTimeout bounds how long Acquire blocks waiting for a session.
	AcquireTimeout time.Duration
	// IdleTimeout closes idle sessions beyond Min that have not been used
	// for this long. Zero disables idle reaping.
	IdleTimeout time.Duration
	// ShutdownGrace bounds how long Close waits for in-flight sessions.
	ShutdownGrace time.Duration
}

// Pool owns the idle/busy bookkeeping for a bounded set of sessions.
// All methods are safe for concurrent use.
type Pool struct {
	dialer Dialer
	cfg    Config
	logger zerolog.Logger

	// slots is a counting semaphore: one token held per busy session.
	slots chan struct{}

	mu     sync.Mutex
	idle   []*Session // oldest first; Acquire pops from the end
	busy   int
	closed bool
}

// New creates a pool and pre-opens cfg.Min sessions. Panics on invalid
// sizing (programmer error); returns an error only for runtime failures
// (a session could not be opened).
func New(ctx context.Context, dialer Dialer, cfg Config, logger zerolog.Logger) (*Pool, error) {
	if cfg.Min < 1 {
		panic("pool: min must be >= 1")
	}
	if cfg.Max < cfg.Min {
		panic("pool: max must be >= min")
	}

	p := &Pool{
		dialer: dialer,
		cfg:    cfg,
		logger: logger,
		slots:  make(chan struct{}, cfg.Max),
	}

	for i := 0; i < cfg.Min; i++ {
		conn, err := dialer.Dial(ctx)
		if err != nil {
			p.closeIdleLocked()
			return nil, fmt.Errorf("pool: failed to open initial session %d of %d: %w", i+1, cfg.Min, err)
		}
		p.idle = append(p.idle, &Session{conn: conn, lastUsed: time.Now()})
	}

	logger.Info().Int("min", cfg.Min).Int("max", cfg.Max).Msg("session pool initialized")
	return p, nil
}

// Acquire hands out an exclusively-owned session, blocking until one is
// available or the wait timeout elapses. Every successful Acquire must be
// paired with Release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("pool: closed")
	}

	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("pool: all %d sessions in use, gave up waiting: %w", p.cfg.Max, ctx.Err())
	}

	// Slot held from here; every failure path must give it back.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, fmt.Errorf("pool: closed")
	}
	if n := len(p.idle); n > 0 {
		s := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.busy++
		p.mu.Unlock()
		return s, nil
	}
	p.busy++
	p.mu.Unlock()

	// No idle session: open one lazily, with bounded retries.
	var lastErr error
	for attempt := 0; attempt <= dialRetries; attempt++ {
		conn, err := p.dialer.Dial(ctx)
		if err == nil {
			return &Session{conn: conn, lastUsed: time.Now()}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	p.mu.Lock()
	p.busy--
	p.mu.Unlock()
	<-p.slots
	return nil, fmt.Errorf("pool: failed to open session after %d attempts: %w", dialRetries+1, lastErr)
}

// Release returns a session to the pool. Sessions marked poisoned or broken
// are closed and discarded; a replacement is opened lazily on the next
// Acquire rather than eagerly, to avoid reconnect storms after an outage.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}

	p.mu.Lock()
	p.busy--
	if p.closed || s.suspect() {
		p.mu.Unlock()
		if err := s.conn.Close(); err != nil {
			p.logger.Warn().Err(err).Msg("error closing discarded session")
		}
		if s.suspect() {
			p.logger.Info().Bool("poisoned", s.poisoned).Bool("broken", s.broken).Msg("discarded suspect session")
		}
		<-p.slots
		return
	}

	s.lastUsed = time.Now()
	p.idle = append(p.idle, s)

	// Reap idle sessions beyond Min that exceeded the idle timeout.
	var reap []*Session
	if p.cfg.IdleTimeout > 0 {
		for len(p.idle) > p.cfg.Min && time.Since(p.idle[0].lastUsed) > p.cfg.IdleTimeout {
			reap = append(reap, p.idle[0])
			p.idle = p.idle[1:]
		}
	}
	p.mu.Unlock()

	for _, r := range reap {
		r.conn.Close()
	}
	<-p.slots
}

// Close tears down the pool: idle sessions are closed immediately, in-flight
// sessions are waited on up to ShutdownGrace (they are closed as their
// operations release them, never yanked mid-query).
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.closeIdleLocked()
	p.mu.Unlock()

	grace := p.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 30 * time.Second
	}
	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	// Claim every slot: each claim means one session is no longer in flight.
	for i := 0; i < p.cfg.Max; i++ {
		select {
		case p.slots <- struct{}{}:
		case <-deadline.C:
			p.mu.Lock()
			busy := p.busy
			p.mu.Unlock()
			return fmt.Errorf("pool: shutdown grace elapsed with %d sessions still in flight", busy)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.logger.Info().Msg("session pool closed")
	return nil
}

// closeIdleLocked closes and drops every idle session. Caller holds p.mu
// (or has exclusive access during New failure cleanup).
func (p *Pool) closeIdleLocked() {
	for _, s := range p.idle {
		s.conn.Close()
	}
	p.idle = nil
}

// Stats reports the current busy and idle session counts.
func (p *Pool) Stats() (busy, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy, len(p.idle)
}
