package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"warden/internal/adapter/storetest"
	"warden/internal/domain"
)

func TestUserStore(t *testing.T) {
	db := New()
	ctx := context.Background()

	u, err := db.InsertUser(ctx, "a@example.com", "hash")
	if err != nil {
		t.Fatalf("InsertUser: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}

	// Duplicate email
	if _, err := db.InsertUser(ctx, "a@example.com", "other"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	got, err := db.SelectUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("SelectUserByEmail: %v", err)
	}
	if got == nil || got.ID != u.ID || got.PasswordHash != "hash" {
		t.Errorf("unexpected user %+v", got)
	}

	// Absent user is not an error
	missing, err := db.SelectUserByEmail(ctx, "b@example.com")
	if err != nil {
		t.Fatalf("SelectUserByEmail: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil, got %+v", missing)
	}
}

func TestSessionStore(t *testing.T) {
	db := New()
	ctx := context.Background()

	u, _ := db.InsertUser(ctx, "a@example.com", "hash")
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := db.InsertSession(ctx, domain.Session{ID: "s1", UserID: u.ID, ExpiresAt: exp}); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	// Foreign key
	if err := db.InsertSession(ctx, domain.Session{ID: "s2", UserID: 999, ExpiresAt: exp}); !errors.Is(err, ErrUnknownUser) {
		t.Errorf("expected ErrUnknownUser, got %v", err)
	}

	row, err := db.SelectSessionWithUser(ctx, "s1")
	if err != nil {
		t.Fatalf("SelectSessionWithUser: %v", err)
	}
	if row == nil || row.User.Email != "a@example.com" || !row.Session.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected row %+v", row)
	}

	newExp := exp.Add(time.Hour)
	if err := db.UpdateSessionExpiry(ctx, "s1", newExp); err != nil {
		t.Fatalf("UpdateSessionExpiry: %v", err)
	}
	row, _ = db.SelectSessionWithUser(ctx, "s1")
	if !row.Session.ExpiresAt.Equal(newExp) {
		t.Errorf("expected %v, got %v", newExp, row.Session.ExpiresAt)
	}

	if err := db.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	// Second delete is a no-op
	if err := db.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession twice: %v", err)
	}
	row, err = db.SelectSessionWithUser(ctx, "s1")
	if err != nil || row != nil {
		t.Errorf("expected nil row, got %+v, %v", row, err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	db := New()
	ctx := context.Background()

	u, _ := db.InsertUser(ctx, "a@example.com", "hash")
	_ = db.InsertSession(ctx, domain.Session{ID: "s1", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)})

	if err := db.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if row, _ := db.SelectSessionWithUser(ctx, "s1"); row != nil {
		t.Error("expected session to be removed with its user")
	}
	if got, _ := db.SelectUserByEmail(ctx, "a@example.com"); got != nil {
		t.Error("expected user to be removed")
	}
}

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return New() })
}
