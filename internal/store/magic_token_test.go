package store

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukerupert/bywater/internal/database"
	"github.com/dukerupert/bywater/internal/model"
)

func setupTokenTestDB(t *testing.T) (*MagicTokenStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fs := NewFamilyStore(db)
	us := NewUserStore(db)
	family, err := fs.Create("Gamgee")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	u, err := us.Create("sam@example.com", "Sam", model.RoleParent, family.ID, nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewMagicTokenStore(db), u.ID
}

func TestMagicTokenCreate(t *testing.T) {
	ts, userID := setupTokenTestDB(t)

	mt, err := ts.Create(userID, model.TokenPurposeLogin, time.Hour)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if len(mt.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(mt.Token))
	}
	if mt.UserID != userID {
		t.Errorf("user_id = %d, want %d", mt.UserID, userID)
	}
	if mt.UsedAt != nil {
		t.Error("fresh token should be unused")
	}
	if !mt.ExpiresAt.After(time.Now().UTC()) {
		t.Error("expiry should be in the future")
	}
}

func TestMagicTokenConsumeIsSingleUse(t *testing.T) {
	ts, userID := setupTokenTestDB(t)

	mt, _ := ts.Create(userID, model.TokenPurposeLogin, time.Hour)

	first, err := ts.Consume(mt.Token)
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if first == nil {
		t.Fatal("first consume should succeed")
	}
	if first.UsedAt == nil {
		t.Error("consumed token should carry used_at")
	}

	second, err := ts.Consume(mt.Token)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if second != nil {
		t.Error("second consume of the same token must fail")
	}
}

func TestMagicTokenConsumeConcurrent(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// One connection so every goroutine contends on the same database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	family, err := NewFamilyStore(db).Create("Gamgee")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	u, err := NewUserStore(db).Create("sam@example.com", "Sam", model.RoleParent, family.ID, nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	ts := NewMagicTokenStore(db)
	mt, err := ts.Create(u.ID, model.TokenPurposeLogin, time.Hour)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	var wins int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ts.Consume(mt.Token)
			if err != nil {
				t.Errorf("consume: %v", err)
				return
			}
			if got != nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
}

func TestMagicTokenConsumeExpired(t *testing.T) {
	ts, userID := setupTokenTestDB(t)

	mt, _ := ts.Create(userID, model.TokenPurposeLogin, -time.Minute)

	got, err := ts.Consume(mt.Token)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got != nil {
		t.Error("expired token must not be consumable")
	}
}

func TestMagicTokenConsumeUnknown(t *testing.T) {
	ts, _ := setupTokenTestDB(t)

	got, err := ts.Consume("deadbeef")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got != nil {
		t.Error("unknown token must not be consumable")
	}
}

func TestMagicTokenDeleteExpired(t *testing.T) {
	ts, userID := setupTokenTestDB(t)

	ts.Create(userID, model.TokenPurposeLogin, -time.Minute)
	keep, _ := ts.Create(userID, model.TokenPurposeInvite, time.Hour)

	n, err := ts.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	got, _ := ts.GetByToken(keep.Token)
	if got == nil {
		t.Error("live token should survive the sweep")
	}
}
