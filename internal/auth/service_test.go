package auth_test

import (
	"errors"
	"testing"

	"github.com/dukerupert/bywater/internal/auth"
	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/session"
	"github.com/dukerupert/bywater/internal/store"
)

type serviceFixture struct {
	svc   *auth.Service
	users *store.UserStore
	user  *model.User
}

func setupService(t *testing.T) serviceFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := store.NewUserStore(db)
	tokens := store.NewMagicTokenStore(db)

	family, err := store.NewFamilyStore(db).Create("Baggins")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	u, err := users.Create("frodo@example.com", "Frodo", model.RoleParent, family.ID, nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	return serviceFixture{
		svc:   auth.NewService(tokens, users, session.NewMemoryStore()),
		users: users,
		user:  u,
	}
}

func TestExchangeMagicToken(t *testing.T) {
	fx := setupService(t)

	mt, err := fx.svc.IssueMagicToken(fx.user.ID, model.TokenPurposeLogin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	sess, user, err := fx.svc.ExchangeMagicToken(mt.Token)
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if sess == nil || sess.Token == "" {
		t.Fatal("expected a session")
	}
	if user.ID != fx.user.ID {
		t.Errorf("user id = %d, want %d", user.ID, fx.user.ID)
	}

	// The login is recorded.
	got, _ := fx.users.GetByID(fx.user.ID)
	if got.LastLoginAt == nil {
		t.Error("exchange should touch last_login_at")
	}
}

func TestExchangeMagicTokenSingleUse(t *testing.T) {
	fx := setupService(t)

	mt, _ := fx.svc.IssueMagicToken(fx.user.ID, model.TokenPurposeLogin)

	if _, _, err := fx.svc.ExchangeMagicToken(mt.Token); err != nil {
		t.Fatalf("first exchange: %v", err)
	}

	_, _, err := fx.svc.ExchangeMagicToken(mt.Token)
	if !errors.Is(err, auth.ErrInvalidOrExpired) {
		t.Errorf("second exchange err = %v, want ErrInvalidOrExpired", err)
	}
}

func TestExchangeMagicTokenUnknown(t *testing.T) {
	fx := setupService(t)

	_, _, err := fx.svc.ExchangeMagicToken("deadbeef")
	if !errors.Is(err, auth.ErrInvalidOrExpired) {
		t.Errorf("err = %v, want ErrInvalidOrExpired", err)
	}
}

func TestExchangeMagicTokenDeactivatedOwner(t *testing.T) {
	fx := setupService(t)

	mt, _ := fx.svc.IssueMagicToken(fx.user.ID, model.TokenPurposeLogin)
	if err := fx.users.Deactivate(fx.user.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, _, err := fx.svc.ExchangeMagicToken(mt.Token)
	if !errors.Is(err, auth.ErrInvalidOrExpired) {
		t.Errorf("err = %v, want ErrInvalidOrExpired for a deactivated owner", err)
	}
}

func TestValidateSession(t *testing.T) {
	fx := setupService(t)

	mt, _ := fx.svc.IssueMagicToken(fx.user.ID, model.TokenPurposeLogin)
	sess, _, _ := fx.svc.ExchangeMagicToken(mt.Token)

	gotSess, gotUser, err := fx.svc.ValidateSession(sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if gotSess == nil || gotUser == nil {
		t.Fatal("expected session and user")
	}
	if gotUser.ID != fx.user.ID {
		t.Errorf("user id = %d, want %d", gotUser.ID, fx.user.ID)
	}
}

func TestValidateSessionDeactivatedOwner(t *testing.T) {
	fx := setupService(t)

	mt, _ := fx.svc.IssueMagicToken(fx.user.ID, model.TokenPurposeLogin)
	sess, _, _ := fx.svc.ExchangeMagicToken(mt.Token)

	fx.users.Deactivate(fx.user.ID)

	gotSess, gotUser, err := fx.svc.ValidateSession(sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if gotSess == nil {
		t.Error("session itself is still live")
	}
	if gotUser != nil {
		t.Error("deactivated owner must not resolve")
	}
}

func TestLogout(t *testing.T) {
	fx := setupService(t)

	mt, _ := fx.svc.IssueMagicToken(fx.user.ID, model.TokenPurposeLogin)
	sess, _, _ := fx.svc.ExchangeMagicToken(mt.Token)

	if err := fx.svc.Logout(sess.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}

	gotSess, _, err := fx.svc.ValidateSession(sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if gotSess != nil {
		t.Error("session should be gone after logout")
	}
}
