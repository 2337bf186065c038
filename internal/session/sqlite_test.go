package session_test

import (
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/session"
	"github.com/dukerupert/bywater/internal/store"
)

func setupSQLStore(t *testing.T) (*session.SQLStore, int64, func(token, interval string)) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	family, err := store.NewFamilyStore(db).Create("Gamgee")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	u, err := store.NewUserStore(db).Create("sam@example.com", "Sam", model.RoleParent, family.ID, nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	backdate := func(token, interval string) {
		t.Helper()
		if _, err := db.Exec(
			`UPDATE sessions SET last_access = datetime('now', ?) WHERE token = ?`,
			interval, token,
		); err != nil {
			t.Fatalf("backdate session: %v", err)
		}
	}
	return session.NewSQLStore(db), u.ID, backdate
}

func TestSQLStoreCreateAndValidate(t *testing.T) {
	ss, userID, _ := setupSQLStore(t)

	sess, err := ss.Create(userID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}

	got, err := ss.Validate(sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.UserID != userID {
		t.Errorf("user_id = %d, want %d", got.UserID, userID)
	}
}

func TestSQLStoreValidateRefreshesLastAccess(t *testing.T) {
	ss, userID, backdate := setupSQLStore(t)

	sess, _ := ss.Create(userID)
	backdate(sess.Token, "-23 hours")

	got, err := ss.Validate(sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got == nil {
		t.Fatal("session within the idle window should validate")
	}
	if !got.LastAccess.After(time.Now().UTC().Add(-time.Minute)) {
		t.Error("validate should move last_access back to now")
	}
}

func TestSQLStoreValidateExpired(t *testing.T) {
	ss, userID, backdate := setupSQLStore(t)

	sess, _ := ss.Create(userID)
	backdate(sess.Token, "-25 hours")

	got, err := ss.Validate(sess.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != nil {
		t.Error("idle-expired session should not validate")
	}

	// The stale row is dropped, so a second validate sees nothing either.
	got, _ = ss.Validate(sess.Token)
	if got != nil {
		t.Error("stale session should have been deleted")
	}
}

func TestSQLStorePurgeExpired(t *testing.T) {
	ss, userID, backdate := setupSQLStore(t)

	stale, _ := ss.Create(userID)
	fresh, _ := ss.Create(userID)
	backdate(stale.Token, "-25 hours")

	purged, err := ss.PurgeExpired()
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}
	if got, _ := ss.Validate(fresh.Token); got == nil {
		t.Error("fresh session should survive the purge")
	}
}

func TestSQLStoreDelete(t *testing.T) {
	ss, userID, _ := setupSQLStore(t)

	sess, _ := ss.Create(userID)
	if err := ss.Delete(sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := ss.Validate(sess.Token); got != nil {
		t.Error("expected nil after delete")
	}
}
