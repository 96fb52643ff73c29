package auth

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

func TestPasswordRoundTrip(t *testing.T) {
	h, err := HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if h == "s3cret" {
		t.Fatal("hash equals plaintext")
	}
	if err := VerifyPassword("s3cret", h); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyPassword("wrong", h); err == nil {
		t.Fatal("wrong password accepted")
	}
}

func TestTokenIssueParse(t *testing.T) {
	tm := NewTokenManager("k1", "coin-wallet", time.Hour)
	tok, exp, err := tm.Issue(Session{ID: "sid-1", AccountID: 7, Username: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past: %v", exp)
	}
	c, err := tm.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != "sid-1" || c.AccountID != 7 {
		t.Fatalf("claims=%+v", c)
	}

	if _, err := NewTokenManager("k2", "coin-wallet", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("other key: want ErrInvalidToken, got %v", err)
	}
	if _, err := NewTokenManager("k1", "someone-else", time.Hour).Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("other issuer: want ErrInvalidToken, got %v", err)
	}
	if _, err := tm.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenRejectsExpiredAndUnsigned(t *testing.T) {
	tm := NewTokenManager("k1", "coin-wallet", -time.Minute)
	tok, _, err := tm.Issue(Session{ID: "sid", AccountID: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tm.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: want ErrInvalidToken, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AccountID: 1})
	s, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := tm.Parse(s); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg none: want ErrInvalidToken, got %v", err)
	}
}

func exerciseStore(t *testing.T, st SessionStore) {
	t.Helper()
	ctx := context.Background()
	s, err := st.Create(ctx, 42, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if s.ID == "" {
		t.Fatal("empty session id")
	}
	got, err := st.Get(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Fatalf("got %+v want %+v", got, s)
	}
	if err := st.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Get(ctx, s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("after delete: want ErrSessionNotFound, got %v", err)
	}
}

func TestMemorySessions(t *testing.T) {
	exerciseStore(t, NewMemorySessions(time.Hour))
}

func TestMemorySessionsExpire(t *testing.T) {
	st := NewMemorySessions(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	s, _ := st.Create(context.Background(), 1, "bob")
	now = now.Add(2 * time.Minute)
	if _, err := st.Get(context.Background(), s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func TestRedisSessions(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	exerciseStore(t, NewRedisSessions(rdb, time.Minute))
}
