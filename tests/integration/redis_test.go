package integration

import (
	"context"
	"testing"
	"time"

)

func TestRedis_CacheOperations(t *testing.T) {
	env := SetupTestEnvironment(t)
	ctx := context.Background()

	t.Run("SetGet", func(t *testing.T) {
		if err := env.Cache.Set(ctx, "it:idtag:TAG001", "Accepted", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		val, err := env.Cache.Get(ctx, "it:idtag:TAG001")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != "Accepted" {
			t.Errorf("expected 'Accepted', got '%s'", val)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		if err := env.Cache.Set(ctx, "it:expiring", "value", 100*time.Millisecond); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		time.Sleep(200 * time.Millisecond)
		if _, err := env.Cache.Get(ctx, "it:expiring"); err == nil {
			t.Error("expected cache miss after expiry")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := env.Cache.Set(ctx, "it:doomed", "value", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := env.Cache.Delete(ctx, "it:doomed"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := env.Cache.Get(ctx, "it:doomed"); err == nil {
			t.Error("expected cache miss after delete")
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := env.Cache.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}
