package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"accounts/internal/entity"
)

func newUser(name, email string) *entity.User {
	return &entity.User{Name: name, Email: email, Password: "$2a$04$hash"}
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	user := newUser("Ann", "  Ann@Example.com ")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID != "1" || user.Email != "ann@example.com" || user.Role != entity.UserRoleUser {
		t.Fatalf("unexpected user %+v", user)
	}

	found, err := repo.GetUserByEmail(ctx, "ANN@example.com", entity.FindOptions{})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Password != "" {
		t.Fatal("password must be hidden by default")
	}

	withPassword, err := repo.GetUserByID(ctx, user.ID, entity.FindOptions{WithPassword: true})
	if err != nil || withPassword.Password == "" {
		t.Fatalf("expected password, got %+v (%v)", withPassword, err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	if err := repo.CreateUser(ctx, newUser("Ann", "ann@example.com")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := repo.CreateUser(ctx, newUser("Other", "ANN@example.com"))
	var dup *entity.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
}

func TestCreateValidates(t *testing.T) {
	err := NewInMemoryRepository().CreateUser(context.Background(), &entity.User{Email: "a@b.io"})
	var verr *entity.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSoftDeleteHidesUser(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	user := newUser("Ann", "ann@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	inactive := false
	if err := repo.UpdateUser(ctx, user.ID, entity.UserUpdates{Active: &inactive}, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := repo.GetUserByID(ctx, user.ID, entity.FindOptions{}); !errors.Is(err, entity.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if users, _ := repo.ListUsers(ctx); len(users) != 0 {
		t.Fatalf("expected no listed users, got %d", len(users))
	}
	if err := repo.CreateUser(ctx, newUser("Again", "ann@example.com")); err == nil {
		t.Fatal("unique email must cover inactive users")
	}
}

func TestResetTokenLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	user := newUser("Ann", "ann@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	hash := "deadbeef"
	expires := now.Add(10 * time.Minute)
	if err := repo.UpdateUser(ctx, user.ID, entity.UserUpdates{PasswordResetToken: &hash, PasswordResetExpires: &expires}, false); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := repo.GetUserByResetToken(ctx, hash, now.Add(9*time.Minute)); err != nil {
		t.Fatalf("expected match inside window: %v", err)
	}
	if _, err := repo.GetUserByResetToken(ctx, hash, now.Add(11*time.Minute)); !errors.Is(err, entity.ErrUserNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

	if err := repo.UpdateUser(ctx, user.ID, entity.UserUpdates{ClearPasswordReset: true}, false); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := repo.GetUserByResetToken(ctx, hash, now); !errors.Is(err, entity.ErrUserNotFound) {
		t.Fatalf("expected cleared token, got %v", err)
	}
}

func TestInvalidID(t *testing.T) {
	_, err := NewInMemoryRepository().GetUserByID(context.Background(), "abc", entity.FindOptions{})
	var castErr *entity.CastError
	if !errors.As(err, &castErr) {
		t.Fatalf("expected CastError, got %v", err)
	}
}

func TestUpdateValidatesModifiedFieldsOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	user := newUser("Ann", "ann@example.com")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	bad := "not-an-email"
	var verr *entity.ValidationError
	if err := repo.UpdateUser(ctx, user.ID, entity.UserUpdates{Email: &bad}, true); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	name := "Annie"
	if err := repo.UpdateUser(ctx, user.ID, entity.UserUpdates{Name: &name}, true); err != nil {
		t.Fatalf("update name: %v", err)
	}
	found, _ := repo.GetUserByID(ctx, user.ID, entity.FindOptions{})
	if found.Name != "Annie" {
		t.Fatalf("expected updated name, got %q", found.Name)
	}
}
