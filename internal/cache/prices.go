// Package cache mirrors simulated prices into Redis for external readers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// PriceUpdate is published on the price channel after every batch
type PriceUpdate struct {
	Prices    map[string]decimal.Decimal `json:"prices"`
	Timestamp time.Time                  `json:"timestamp"`
}

// PriceCache writes post-batch prices into a Redis hash keyed by ticker and
// publishes each batch on a channel. It implements simulator.PriceListener.
type PriceCache struct {
	client  *redis.Client
	key     string
	channel string
}

// NewPriceCache creates a price cache on an existing client
func NewPriceCache(client *redis.Client, key, channel string) *PriceCache {
	return &PriceCache{client: client, key: key, channel: channel}
}

// Connect opens a Redis client and verifies it with a ping
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// PricesUpdated stores the snapshot and publishes it in one pipeline
func (c *PriceCache) PricesUpdated(ctx context.Context, securities []models.Security) error {
	update := PriceUpdate{
		Prices:    make(map[string]decimal.Decimal, len(securities)),
		Timestamp: time.Now(),
	}
	fields := make([]any, 0, len(securities)*2)
	for _, s := range securities {
		update.Prices[s.Ticker] = s.CurrentPrice
		fields = append(fields, s.Ticker, s.CurrentPrice.StringFixed(models.PricePrecision))
	}

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal price update: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HSet(ctx, c.key, fields...)
		}
		pipe.Publish(ctx, c.channel, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cache prices: %w", err)
	}
	return nil
}

// GetPrice returns the cached price for ticker
func (c *PriceCache) GetPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	val, err := c.client.HGet(ctx, c.key, ticker).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, fmt.Errorf("cached price for %s: %w", ticker, models.ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get cached price: %w", err)
	}

	price, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid cached price %q: %w", val, err)
	}
	return price, nil
}

// GetAll returns every cached price keyed by ticker
func (c *PriceCache) GetAll(ctx context.Context) (map[string]decimal.Decimal, error) {
	vals, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cached prices: %w", err)
	}

	out := make(map[string]decimal.Decimal, len(vals))
	for ticker, val := range vals {
		price, err := decimal.NewFromString(val)
		if err != nil {
			return nil, fmt.Errorf("invalid cached price for %s: %w", ticker, err)
		}
		out[ticker] = price
	}
	return out, nil
}

// Subscribe returns a subscription to the price update channel
func (c *PriceCache) Subscribe(ctx context.Context) *redis.PubSub {
	return c.client.Subscribe(ctx, c.channel)
}

// Watch delivers every published price update to handle until ctx is
// cancelled. Malformed payloads are skipped.
func (c *PriceCache) Watch(ctx context.Context, handle func(PriceUpdate)) error {
	sub := c.Subscribe(ctx)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var update PriceUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				continue
			}
			handle(update)
		}
	}
}
