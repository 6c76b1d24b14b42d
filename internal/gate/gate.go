// Package gate decides, per request, whether the caller may see a protected
// page. A Gate starts out Loading, asks its identity check who is signed in,
// and settles as Unauthenticated or Authenticated.
package gate

import (
	"context"
	"errors"
	"sync"

	"github.com/medportal/portal-backend/internal/user"
)

type State int

const (
	Loading State = iota
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// IdentityCheck reports the signed-in user. (nil, nil) means there is no
// session.
type IdentityCheck func(ctx context.Context) (*user.User, error)

type Gate struct {
	check IdentityCheck

	mu      sync.Mutex
	state   State
	current *user.User
	gen     uint64
	done    chan struct{}
}

func New(check IdentityCheck) *Gate {
	return &Gate{check: check, done: make(chan struct{})}
}

// Resolve runs the identity check for the current generation and settles the
// gate. It is a no-op once the generation has settled. A check that fails
// because ctx ended leaves the gate Loading; any other failure settles it as
// Unauthenticated and is returned.
func (g *Gate) Resolve(ctx context.Context) error {
	g.mu.Lock()
	gen, settled := g.gen, g.state != Loading
	g.mu.Unlock()
	if settled {
		return nil
	}
	return g.run(ctx, gen)
}

// Start resolves the gate in the background. Use Wait to block on the result.
func (g *Gate) Start(ctx context.Context) {
	g.mu.Lock()
	gen := g.gen
	g.mu.Unlock()
	go g.run(ctx, gen) //nolint:errcheck
}

// Wait blocks until the gate settles or ctx ends. A Restart while waiting
// moves the wait on to the new generation.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		done := g.done
		g.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		g.mu.Lock()
		loading := g.state == Loading
		g.mu.Unlock()
		if !loading {
			return nil
		}
	}
}

// Restart reacts to a sign-in or sign-out elsewhere: the gate goes back to
// Loading and checks again. Answers still in flight for earlier generations
// are dropped when they arrive.
func (g *Gate) Restart(ctx context.Context) {
	g.mu.Lock()
	g.gen++
	gen := g.gen
	if g.state == Loading {
		// wake waiters of the superseded generation
		close(g.done)
	}
	g.state = Loading
	g.current = nil
	g.done = make(chan struct{})
	g.mu.Unlock()
	go g.run(ctx, gen) //nolint:errcheck
}

func (g *Gate) run(ctx context.Context, gen uint64) error {
	u, err := g.check(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen || g.state != Loading {
		return nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		g.settle(Unauthenticated, nil)
		return err
	}
	if u == nil {
		g.settle(Unauthenticated, nil)
		return nil
	}
	g.settle(Authenticated, u)
	return nil
}

// settle must be called with mu held.
func (g *Gate) settle(s State, u *user.User) {
	g.state = s
	g.current = u
	close(g.done)
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gate) IsLoading() bool {
	return g.State() == Loading
}

// CurrentUser is nil unless the gate is Authenticated.
func (g *Gate) CurrentUser() *user.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}
