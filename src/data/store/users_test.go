package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ltyyb/surveybot/src/shared/survey"
	"github.com/ltyyb/surveybot/src/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	users := NewUsers(testutil.NewDB(t))
	ctx := context.Background()

	u1, created, err := users.Register(ctx, "42")
	if err != nil || !created {
		t.Fatalf("first register = %v, %v", created, err)
	}
	u2, created, err := users.Register(ctx, "42")
	if err != nil || created {
		t.Fatalf("second register = %v, %v", created, err)
	}
	if u1.UserID != u2.UserID {
		t.Fatalf("user ids differ: %s vs %s", u1.UserID, u2.UserID)
	}
}

func TestVerification(t *testing.T) {
	users := NewUsers(testutil.NewDB(t))
	ctx := context.Background()
	u, _, _ := users.Register(ctx, "42")

	if ok, _ := users.IsVerified(ctx, "42"); ok {
		t.Fatal("new user verified")
	}
	if changed, err := users.SetVerified(ctx, u.UserID, true); err != nil || !changed {
		t.Fatalf("verify = %v, %v", changed, err)
	}
	if changed, _ := users.SetVerified(ctx, u.UserID, true); changed {
		t.Fatal("repeat verify reported change")
	}
	if ok, _ := users.IsVerified(ctx, "42"); !ok {
		t.Fatal("user not verified")
	}
	if ok, err := users.IsVerified(ctx, "unknown"); err != nil || ok {
		t.Fatalf("unknown identity = %v, %v", ok, err)
	}
	if _, err := users.SetVerified(ctx, "missing", true); !errors.Is(err, survey.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestRegisterWithID(t *testing.T) {
	users := NewUsers(testutil.NewDB(t))
	ctx := context.Background()
	id := NewID()

	if err := users.RegisterWithID(ctx, id, "42"); err != nil {
		t.Fatal(err)
	}
	if err := users.RegisterWithID(ctx, id, "42"); err != nil {
		t.Fatalf("same pair rejected: %v", err)
	}
	if err := users.RegisterWithID(ctx, NewID(), "42"); err == nil {
		t.Fatal("identity bound twice")
	}
}

func TestLinksReuseAndExpiry(t *testing.T) {
	links := NewLinks(testutil.NewDB(t))
	ctx := context.Background()
	now := baseTime
	links.now = func() time.Time { return now }

	first, err := links.Issue(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}

	now = baseTime.Add(59 * time.Minute)
	if again, _ := links.Issue(ctx, "u1"); again != first {
		t.Fatalf("link not reused within window: %s vs %s", again, first)
	}

	now = baseTime.Add(61 * time.Minute)
	fresh, _ := links.Issue(ctx, "u1")
	if fresh == first {
		t.Fatal("link reused after window")
	}
	if user, err := links.Resolve(ctx, first); err != nil || user != "u1" {
		t.Fatalf("resolve old link = %q, %v", user, err)
	}

	now = baseTime.Add(2*time.Hour + time.Second)
	if _, err := links.Resolve(ctx, first); !errors.Is(err, survey.ErrNotFound) {
		t.Fatalf("expired link resolved: %v", err)
	}
	if user, err := links.Resolve(ctx, fresh); err != nil || user != "u1" {
		t.Fatalf("fresh link = %q, %v", user, err)
	}

	removed, err := links.Purge(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("purge = %d, %v", removed, err)
	}
}

func TestResolverPassesFullIDs(t *testing.T) {
	r := NewResolver(testutil.NewDB(t))
	full := NewID()
	got, err := r.Resolve(context.Background(), full, ScopeArchived)
	if err != nil || got != full {
		t.Fatalf("resolve full = %q, %v", got, err)
	}
	mixed := "ABCD" + full[4:]
	if got, err := r.Resolve(context.Background(), mixed, ScopeActive); err != nil || got != mixed {
		t.Fatalf("resolve mixed-case full = %q, %v", got, err)
	}
	if _, err := r.Resolve(context.Background(), "  ", ScopeActive); !errors.Is(err, survey.ErrNotFound) {
		t.Fatalf("blank err = %v", err)
	}
}
