package cache

import (
	"context"
	"testing"
	"time"

	"cartrack-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *DashboardCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewWithClient(client, time.Minute, zap.NewNop())
}

func TestDashboardCache_RoundTrip(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	dashboard := models.AdminDashboard{
		Summary:     models.Summary{Count: 3, SumTotalCleaned: 12, AvgTotalCleaned: 4},
		EmailStatus: map[models.DeliveryStatus]int{models.DeliveryStatusSent: 2},
	}
	c.Set(ctx, AdminKey("all"), dashboard)

	var got models.AdminDashboard
	require.True(t, c.Get(ctx, AdminKey("all"), &got))
	assert.Equal(t, 12, got.SumTotalCleaned)
	assert.Equal(t, 2, got.EmailStatus[models.DeliveryStatusSent])

	mr.FastForward(2 * time.Minute)
	assert.False(t, c.Get(ctx, AdminKey("all"), &got), "entries expire after the ttl")
}

func TestDashboardCache_Invalidate(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	c.Set(ctx, UserKey("u1", "company-1", "all"), models.UserDashboard{})
	c.Set(ctx, UserKey("u1", "", "2026-10-01_2026-10-31"), models.UserDashboard{})
	c.Set(ctx, UserKey("u2", "company-1", "all"), models.UserDashboard{})
	c.Set(ctx, AdminKey("all"), models.AdminDashboard{})

	c.InvalidateDashboards(ctx, "u1")

	assert.False(t, mr.Exists(UserKey("u1", "company-1", "all")))
	assert.False(t, mr.Exists(UserKey("u1", "", "2026-10-01_2026-10-31")))
	assert.False(t, mr.Exists(AdminKey("all")))
	assert.True(t, mr.Exists(UserKey("u2", "company-1", "all")))
}

func TestDashboardCache_DegradesWhenRedisIsDown(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()
	mr.Close()

	c.Set(ctx, AdminKey("all"), models.AdminDashboard{})
	var got models.AdminDashboard
	assert.False(t, c.Get(ctx, AdminKey("all"), &got))
	c.InvalidateDashboards(ctx, "u1")
}

func TestDashboardCache_NilIsDisabled(t *testing.T) {
	var c *DashboardCache
	ctx := context.Background()

	c.Set(ctx, AdminKey("all"), models.AdminDashboard{})
	var got models.AdminDashboard
	assert.False(t, c.Get(ctx, AdminKey("all"), &got))
	c.InvalidateDashboards(ctx, "u1")
	assert.NoError(t, c.Close())
}

func TestDashboardCache_CorruptEntry(t *testing.T) {
	mr, c := setupTestRedis(t)
	require.NoError(t, mr.Set(AdminKey("all"), "{not json"))

	var got models.AdminDashboard
	assert.False(t, c.Get(context.Background(), AdminKey("all"), &got))
}
