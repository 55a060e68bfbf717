package broker

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPort = "6379"
	// BLPOP timeouts are whole seconds on the wire.
	defaultPollInterval = time.Second
)

// RedisClient implements Broker on top of go-redis.
type RedisClient struct {
	rdb          *redis.Client
	pollInterval time.Duration
}

// Option adjusts the client before it is created.
type Option func(*RedisClient, *redis.Options)

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(d time.Duration) Option {
	return func(_ *RedisClient, o *redis.Options) { o.DialTimeout = d }
}

// WithPollInterval sets how long a single BLPOP waits before the context is
// checked again.
func WithPollInterval(d time.Duration) Option {
	return func(c *RedisClient, _ *redis.Options) {
		if d >= time.Second {
			c.pollInterval = d.Truncate(time.Second)
		}
	}
}

// NormalizeAddr appends the default Redis port to a bare host.
func NormalizeAddr(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "redis://")
	host = strings.TrimSuffix(host, "/")
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), defaultPort)
}

// NewRedisClient builds a client for addr ("host" or "host:port"). No
// authentication is used. Connections are established lazily; call Ping to
// verify reachability.
func NewRedisClient(addr string, opts ...Option) (*RedisClient, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("broker: empty address")
	}
	o := &redis.Options{
		Addr: NormalizeAddr(addr),
		// BLPOP with timeout 0 may wait forever; never time out the read.
		ReadTimeout: -1,
		// one worker loop uses at most one connection at a time, the health
		// probe may use another
		PoolSize: 4,
	}
	c := &RedisClient{pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(c, o)
	}
	c.rdb = redis.NewClient(o)
	return c, nil
}

// BlockingPopAny issues BLPOP in slices of the poll interval so that a
// cancelled ctx ends the wait. An item is never popped after ctx is done. With
// timeout 0 it waits until an item arrives or ctx is cancelled, in which case
// ctx.Err() is returned.
func (c *RedisClient) BlockingPopAny(ctx context.Context, queues []string, timeout time.Duration) (string, string, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		wait := c.pollInterval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return "", "", ErrNoItem
			}
			if remaining < wait {
				wait = remaining
			}
		}

		res, err := c.rdb.BLPop(ctx, wait, queues...).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", "", ctx.Err()
			}
			return "", "", &Error{Op: "blpop", Err: err}
		}
		if len(res) != 2 {
			return "", "", &Error{Op: "blpop", Err: errors.New("unexpected reply length")}
		}
		return res[0], res[1], nil
	}
}

func (c *RedisClient) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return &Error{Op: "set", Err: err}
	}
	return nil
}

// Push appends payload to queue. The worker never calls it; it backs the
// enqueue subcommand and tests.
func (c *RedisClient) Push(ctx context.Context, queue, payload string) error {
	if err := c.rdb.RPush(ctx, queue, payload).Err(); err != nil {
		return &Error{Op: "rpush", Err: err}
	}
	return nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return &Error{Op: "ping", Err: err}
	}
	return nil
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
