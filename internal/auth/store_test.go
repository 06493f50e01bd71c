package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHashPrefix_LengthAndDeterminism(t *testing.T) {
	p1 := HashPrefix("test-key")
	p2 := HashPrefix("test-key")
	if len(p1) != 8 { t.Fatalf("len=%d", len(p1)) }
	if p1 != p2 { t.Fatalf("non-deterministic: %s vs %s", p1, p2) }
	if HashPrefix("other-key") == p1 { t.Fatalf("distinct keys collided") }
}

func TestKeyCache_Expiry(t *testing.T) {
	c := newKeyCache(time.Second)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	c.put("k", true)
	if active, ok := c.get("k"); !ok || !active { t.Fatalf("want cached active, got ok=%v active=%v", ok, active) }
	now = now.Add(time.Second)
	if _, ok := c.get("k"); ok { t.Fatalf("entry should have expired") }
}

func TestKeyCache_NegativeEntry(t *testing.T) {
	c := newKeyCache(time.Minute)
	c.put("gone", false)
	active, ok := c.get("gone")
	if !ok || active { t.Fatalf("want cached inactive, got ok=%v active=%v", ok, active) }
}

func TestStaticKeyStore(t *testing.T) {
	s := StaticKeyStore{"dev-123": true, "old": false}
	ctx := context.Background()
	if ok, err := s.Validate(ctx, "dev-123"); err != nil || !ok { t.Fatalf("ok=%v err=%v", ok, err) }
	if ok, _ := s.Validate(ctx, "old"); ok { t.Fatalf("inactive key accepted") }
	if ok, _ := s.Validate(ctx, "nope"); ok { t.Fatalf("unknown key accepted") }
	if _, err := s.Validate(ctx, ""); !errors.Is(err, ErrMissingKey) { t.Fatalf("err=%v", err) }
	if err := s.Ping(ctx); err != nil { t.Fatalf("ping: %v", err) }
}
