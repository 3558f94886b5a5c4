package valkeydb

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const keyPrefix = "gallery:ratelimit:"

type ValkeyClient struct {
	Client valkey.Client
}

func New(ctx context.Context, address string, password string) (*ValkeyClient, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{address},
		Password:    password,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Valkey client: %w", err)
	}

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping Valkey: %w", err)
	}

	return &ValkeyClient{Client: client}, nil
}

func (v *ValkeyClient) Close() {
	v.Client.Close()
}

// WindowLimiter allows at most Limit requests per key in each fixed window.
// Counters live in Valkey so every gateway instance shares them.
type WindowLimiter struct {
	client *ValkeyClient
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewWindowLimiter(client *ValkeyClient, limit int64, window time.Duration) *WindowLimiter {
	return &WindowLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// WindowFor converts a token bucket rate into a fixed window that admits
// burst requests, at least one second long.
func WindowFor(reqPerSec float64, burst int) (time.Duration, int64) {
	if reqPerSec <= 0 || burst <= 0 {
		return time.Second, 1
	}
	window := time.Duration(float64(burst) / reqPerSec * float64(time.Second))
	if window < time.Second {
		window = time.Second
	}
	return window, int64(burst)
}

func (l *WindowLimiter) windowKey(key string) string {
	bucket := l.now().UnixNano() / int64(l.window)
	return fmt.Sprintf("%s%s:%d", keyPrefix, key, bucket)
}

func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	c := l.client.Client
	counterKey := l.windowKey(key)

	count, err := c.Do(ctx, c.B().Incr().Key(counterKey).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("unable to increment counter %s: %w", counterKey, err)
	}

	if count == 1 {
		seconds := int64((l.window + time.Second - 1) / time.Second)
		if err := c.Do(ctx, c.B().Expire().Key(counterKey).Seconds(seconds).Build()).Error(); err != nil {
			return false, fmt.Errorf("unable to set expiry on %s: %w", counterKey, err)
		}
	}

	return count <= l.limit, nil
}
