package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/trogers1052/investment-simulator/internal/market"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// setupRedis starts a Redis container and returns its address
func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestPriceCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	client, err := Connect(ctx, setupRedis(t), "", 0)
	require.NoError(t, err)
	defer client.Close()

	t.Run("PricesUpdated stores every ticker", func(t *testing.T) {
		require.NoError(t, client.FlushDB(ctx).Err())
		cache := NewPriceCache(client, "test:prices", "test:updates")

		require.NoError(t, cache.PricesUpdated(ctx, market.DefaultSecurities()))

		price, err := cache.GetPrice(ctx, "TSLA")
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(250)))

		all, err := cache.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
		assert.True(t, all["AAPL"].Equal(decimal.NewFromInt(170)))
	})

	t.Run("GetPrice unknown ticker", func(t *testing.T) {
		require.NoError(t, client.FlushDB(ctx).Err())
		cache := NewPriceCache(client, "test:prices", "test:updates")

		_, err := cache.GetPrice(ctx, "MSFT")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("PricesUpdated publishes the batch", func(t *testing.T) {
		cache := NewPriceCache(client, "test:prices", "test:updates")

		sub := cache.Subscribe(ctx)
		defer sub.Close()
		_, err := sub.Receive(ctx)
		require.NoError(t, err)

		require.NoError(t, cache.PricesUpdated(ctx, market.DefaultSecurities()))

		select {
		case msg := <-sub.Channel():
			var update PriceUpdate
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &update))
			assert.Len(t, update.Prices, 3)
			assert.True(t, update.Prices["GAZP"].Equal(decimal.NewFromInt(160)))
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for price update")
		}
	})
}

func TestPriceCacheWatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := Connect(ctx, setupRedis(t), "", 0)
	require.NoError(t, err)
	defer client.Close()

	cache := NewPriceCache(client, "test:prices", "test:updates")
	updates := make(chan PriceUpdate, 1)

	done := make(chan error, 1)
	go func() {
		done <- cache.Watch(ctx, func(u PriceUpdate) {
			select {
			case updates <- u:
			default:
			}
		})
	}()

	// publish until the subscription is live
	require.Eventually(t, func() bool {
		if err := client.Publish(ctx, "test:updates", "not json").Err(); err != nil {
			return false
		}
		if err := cache.PricesUpdated(ctx, market.DefaultSecurities()); err != nil {
			return false
		}
		return len(updates) > 0
	}, 5*time.Second, 50*time.Millisecond)

	update := <-updates
	assert.True(t, update.Prices["AAPL"].Equal(decimal.NewFromInt(170)))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestConnectFailsWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
