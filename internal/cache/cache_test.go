package cache

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/libraryhub/internal/domain/user"
)

func TestMemoryUsersSetGetDelete(t *testing.T) {
	c := NewMemoryUsers(time.Minute)
	ctx := context.Background()

	u := user.Public{ID: "u1", Name: "Ann Lee", Email: "ann@example.com", Role: user.RoleUser}

	if _, ok := c.Get(ctx, "u1"); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Set(ctx, u)

	got, ok := c.Get(ctx, "u1")

	if !ok || got.Email != "ann@example.com" {
		t.Fatalf("expected cached user, got %+v ok=%v", got, ok)
	}

	c.Delete(ctx, "u1")

	if _, ok := c.Get(ctx, "u1"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestMemoryUsersExpiry(t *testing.T) {
	c := NewMemoryUsers(10 * time.Millisecond)
	ctx := context.Background()

	c.Set(ctx, user.Public{ID: "u1"})

	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get(ctx, "u1"); ok {
		t.Fatal("expected entry to expire")
	}
}
