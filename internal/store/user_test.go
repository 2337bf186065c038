package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
)

func setupUserTestDB(t *testing.T) (*UserStore, *FamilyStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db), NewFamilyStore(db)
}

func TestUserCreate(t *testing.T) {
	us, fs := setupUserTestDB(t)

	family, err := fs.Create("Baggins")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	u, err := us.Create("frodo@example.com", "Frodo", model.RoleParent, family.ID, nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "frodo@example.com" {
		t.Errorf("email = %q", u.Email)
	}
	if u.Role != model.RoleParent {
		t.Errorf("role = %q, want parent", u.Role)
	}
	if u.FamilyID != family.ID {
		t.Errorf("family_id = %d, want %d", u.FamilyID, family.ID)
	}
	if !u.Active {
		t.Error("new users should be active")
	}
	if u.LastLoginAt != nil {
		t.Error("last_login_at should start null")
	}
}

func TestUserCreateDuplicateActiveEmail(t *testing.T) {
	us, fs := setupUserTestDB(t)

	family, _ := fs.Create("Baggins")
	if _, err := us.Create("frodo@example.com", "Frodo", model.RoleParent, family.ID, nil, nil); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Straight to the insert, the way a lost pre-check race would arrive.
	_, err := us.Create("frodo@example.com", "Imposter", model.RoleParent, family.ID, nil, nil)
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestUserGetByEmailIgnoresInactive(t *testing.T) {
	us, fs := setupUserTestDB(t)

	family, _ := fs.Create("Baggins")
	u, _ := us.Create("frodo@example.com", "Frodo", model.RoleParent, family.ID, nil, nil)

	got, err := us.GetByEmail("frodo@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatal("expected to find active user by email")
	}

	if err := us.Deactivate(u.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err = us.GetByEmail("frodo@example.com")
	if err != nil {
		t.Fatalf("get by email after deactivate: %v", err)
	}
	if got != nil {
		t.Error("deactivated users must not resolve by email")
	}

	// The email is free for reuse once its holder is deactivated.
	if _, err := us.Create("frodo@example.com", "Frodo II", model.RoleChild, family.ID, nil, nil); err != nil {
		t.Errorf("reusing a deactivated email should succeed: %v", err)
	}
}

func TestUserListByFamilyScopesAndFilters(t *testing.T) {
	us, fs := setupUserTestDB(t)

	baggins, _ := fs.Create("Baggins")
	took, _ := fs.Create("Took")

	parent, _ := us.Create("frodo@example.com", "Frodo", model.RoleParent, baggins.ID, nil, nil)
	child, _ := us.Create("sam@example.com", "Sam", model.RoleChild, baggins.ID, nil, &parent.ID)
	us.Create("pippin@example.com", "Pippin", model.RoleChild, took.ID, nil, nil)

	inactive, _ := us.Create("merry@example.com", "Merry", model.RoleChild, baggins.ID, nil, &parent.ID)
	us.Deactivate(inactive.ID)

	users, err := us.ListByFamily(baggins.ID)
	if err != nil {
		t.Fatalf("list by family: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
	for _, u := range users {
		if u.FamilyID != baggins.ID {
			t.Errorf("user %d leaked from family %d", u.ID, u.FamilyID)
		}
	}

	if child.CreatedBy == nil || *child.CreatedBy != parent.ID {
		t.Errorf("created_by = %v, want %d", child.CreatedBy, parent.ID)
	}
}

func TestUserUpdateAndTouchLastLogin(t *testing.T) {
	us, fs := setupUserTestDB(t)

	family, _ := fs.Create("Baggins")
	u, _ := us.Create("frodo@example.com", "Frodo", model.RoleParent, family.ID, nil, nil)

	updated, err := us.Update(u.ID, "Frodo Baggins", nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Frodo Baggins" {
		t.Errorf("name = %q", updated.Name)
	}

	if err := us.TouchLastLogin(u.ID); err != nil {
		t.Fatalf("touch last login: %v", err)
	}
	got, _ := us.GetByID(u.ID)
	if got.LastLoginAt == nil {
		t.Error("last_login_at should be set after touch")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us, _ := setupUserTestDB(t)

	u, err := us.GetByID(9999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for missing user")
	}
}
