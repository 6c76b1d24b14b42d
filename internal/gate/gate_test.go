package gate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/medportal/portal-backend/internal/user"
)

func TestGate_InitiallyLoading(t *testing.T) {
	g := New(func(context.Context) (*user.User, error) { return nil, nil })
	if !g.IsLoading() {
		t.Fatalf("new gate should be loading")
	}
	if g.CurrentUser() != nil {
		t.Fatalf("new gate should have no user")
	}
	if out := Authorize(g, ""); out.Kind != KindLoading {
		t.Fatalf("expected loading outcome, got %+v", out)
	}
}

func TestGate_NoSession(t *testing.T) {
	g := New(func(context.Context) (*user.User, error) { return nil, nil })
	if err := g.Resolve(context.Background()); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if g.IsLoading() || g.CurrentUser() != nil || g.State() != Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", g.State())
	}
	out := Authorize(g, "")
	if out.Kind != KindDenied || out.Reason != AuthenticationRequired {
		t.Fatalf("expected authentication_required, got %+v", out)
	}
}

func TestGate_AuthenticatedRoles(t *testing.T) {
	patient := &user.User{ID: "p1", Role: user.RolePatient}
	g := New(func(context.Context) (*user.User, error) { return patient, nil })
	if err := g.Resolve(context.Background()); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if g.CurrentUser() != patient {
		t.Fatalf("current user not set")
	}

	if out := Authorize(g, ""); out.Kind != KindAllowed || out.User != patient {
		t.Fatalf("any signed-in user should pass, got %+v", out)
	}
	if out := Authorize(g, user.RolePatient); out.Kind != KindAllowed {
		t.Fatalf("matching role should pass, got %+v", out)
	}
	out := Authorize(g, user.RoleHospitalAdmin)
	if out.Kind != KindDenied || out.Reason != AccessDenied {
		t.Fatalf("expected access_denied, got %+v", out)
	}
}

func TestGate_CheckErrors(t *testing.T) {
	g := New(func(ctx context.Context) (*user.User, error) { return nil, ctx.Err() })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Resolve(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !g.IsLoading() {
		t.Fatalf("a cancelled check must leave the gate loading")
	}

	boom := errors.New("identity endpoint down")
	g = New(func(context.Context) (*user.User, error) { return nil, boom })
	if err := g.Resolve(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected check error, got %v", err)
	}
	if g.State() != Unauthenticated {
		t.Fatalf("failed check should settle unauthenticated, got %v", g.State())
	}
}

func TestGate_StartAndWait(t *testing.T) {
	u := &user.User{ID: "u1"}
	g := New(func(context.Context) (*user.User, error) { return u, nil })
	g.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if g.State() != Authenticated || g.CurrentUser() != u {
		t.Fatalf("expected authenticated u1, got %v", g.State())
	}
}

type slowKey struct{}

func TestGate_RestartDropsStaleAnswer(t *testing.T) {
	stale := &user.User{ID: "signed-out"}
	release := make(chan struct{})
	g := New(func(ctx context.Context) (*user.User, error) {
		if ctx.Value(slowKey{}) != nil {
			<-release
			return stale, nil
		}
		return nil, nil
	})

	slowCtx := context.WithValue(context.Background(), slowKey{}, true)
	staleDone := make(chan error, 1)
	go func() { staleDone <- g.run(slowCtx, 0) }()

	g.Restart(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.Wait(ctx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	close(release)
	if err := <-staleDone; err != nil {
		t.Fatalf("stale run returned %v", err)
	}
	if g.State() != Unauthenticated || g.CurrentUser() != nil {
		t.Fatalf("stale answer overwrote newer state: %v %+v", g.State(), g.CurrentUser())
	}
}

func TestGate_WaitFollowsRestart(t *testing.T) {
	u := &user.User{ID: "u1"}
	release := make(chan struct{})
	defer close(release)
	var calls int32
	g := New(func(context.Context) (*user.User, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-release
			return nil, nil
		}
		return u, nil
	})
	g.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	waited := make(chan error, 1)
	go func() { waited <- g.Wait(ctx) }()
	time.Sleep(10 * time.Millisecond)

	g.Restart(context.Background())
	if err := <-waited; err != nil {
		t.Fatalf("waiter on the earlier generation never woke: %v", err)
	}
	if g.State() != Authenticated || g.CurrentUser() != u {
		t.Fatalf("expected authenticated u1, got %v", g.State())
	}
}

func TestGate_ResolveOncePerGeneration(t *testing.T) {
	calls := 0
	g := New(func(context.Context) (*user.User, error) {
		calls++
		return nil, nil
	})
	_ = g.Resolve(context.Background())
	_ = g.Resolve(context.Background())
	if calls != 1 {
		t.Fatalf("expected one identity check, got %d", calls)
	}
}
