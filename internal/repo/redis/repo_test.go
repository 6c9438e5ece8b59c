package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/HyperSlump/shop-sub000/internal/domain/model"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCatalogCacheRoundTripAndExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewCatalogCacheRepo(client)
	ctx := context.Background()

	if _, found, err := repo.Get(ctx, "digital"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	products := []model.Product{{
		ID:       "price_1",
		Name:     "Drum Pack",
		Amount:   decimal.RequireFromString("12.99"),
		Currency: "usd",
		Metadata: map[string]string{model.MetaType: "DIGITAL", model.MetaFileKey: "packs/drums.zip"},
	}}
	if err := repo.Set(ctx, "Digital", products, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, found, err := repo.Get(ctx, "digital")
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if len(got) != 1 || got[0].ID != "price_1" || !got[0].Amount.Equal(products[0].Amount) || got[0].Metadata[model.MetaFileKey] != "packs/drums.zip" {
		t.Fatalf("unexpected cached products: %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if _, found, _ := repo.Get(ctx, "digital"); found {
		t.Fatalf("expected entry to expire")
	}
}

func TestCatalogCacheInvalidate(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewCatalogCacheRepo(client)
	ctx := context.Background()

	if err := repo.Set(ctx, "physical", nil, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, found, err := repo.Get(ctx, "physical")
	if err != nil || !found || len(got) != 0 {
		t.Fatalf("expected cached empty list, got %v found=%v err=%v", got, found, err)
	}

	if err := repo.Invalidate(ctx, "physical"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, found, _ := repo.Get(ctx, "physical"); found {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestClaimIsExclusiveUntilReleased(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewClaimRepo(client)
	ctx := context.Background()

	ok, err := repo.Claim(ctx, "cs_test_1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Claim(ctx, "cs_test_1", time.Hour)
	if err != nil || ok {
		t.Fatalf("second claim must lose: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL(orderClaimKey("cs_test_1")); ttl != time.Hour {
		t.Fatalf("unexpected claim ttl: %v", ttl)
	}

	if err := repo.Release(ctx, "cs_test_1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = repo.Claim(ctx, "cs_test_1", time.Hour)
	if err != nil || !ok {
		t.Fatalf("claim after release: ok=%v err=%v", ok, err)
	}
}

func TestClaimRejectsBlankID(t *testing.T) {
	_, client := newTestClient(t)
	if _, err := NewClaimRepo(client).Claim(context.Background(), " ", time.Hour); err == nil {
		t.Fatalf("expected error for blank external id")
	}
}

func TestRateWindowCountsAndExpires(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewRateRepo(client)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := repo.IncrementWindow(ctx, "rate:test", 10*time.Second)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if count != want || ttl <= 0 || ttl > 10*time.Second {
			t.Fatalf("unexpected window state: count=%d ttl=%s", count, ttl)
		}
	}

	mr.FastForward(11 * time.Second)
	count, _, err := repo.IncrementWindow(ctx, "rate:test", 10*time.Second)
	if err != nil || count != 1 {
		t.Fatalf("expected a fresh window, got count=%d err=%v", count, err)
	}

	if _, _, err := repo.IncrementWindow(ctx, "", time.Second); err == nil {
		t.Fatalf("expected error for blank key")
	}
}

func TestRateWindowRepairsMissingExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewRateRepo(client)

	if err := mr.Set("rate:stuck", "5"); err != nil {
		t.Fatalf("seed key: %v", err)
	}
	count, ttl, err := repo.IncrementWindow(context.Background(), "rate:stuck", time.Minute)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if count != 6 || ttl != time.Minute || mr.TTL("rate:stuck") != time.Minute {
		t.Fatalf("expiry not restored: count=%d ttl=%s redis_ttl=%s", count, ttl, mr.TTL("rate:stuck"))
	}
}
