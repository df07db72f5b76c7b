package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects and configures a KV backend.
type Options struct {
	Backend     string // memory, file, redis, postgres or mysql
	Path        string // file backend
	RedisAddr   string
	DatabaseURL string // postgres or mysql DSN
	// FaultRate wraps the backend in a FaultyKV when positive.
	FaultRate float64
}

// Open connects the KV backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (KV, error) {
	kv, err := open(ctx, opts)
	if err != nil || opts.FaultRate <= 0 {
		return kv, err
	}
	return NewFaultyKV(kv, opts.FaultRate, uint64(time.Now().UnixNano())), nil
}

func open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case "memory":
		return NewMemoryKV(), nil
	case "file":
		return NewFileKV(opts.Path)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:        opts.RedisAddr,
			DialTimeout: 5 * time.Second,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisKV(client, "librocart/"), nil
	case string(Postgres), string(MySQL):
		db, err := OpenSQL(ctx, Dialect(opts.Backend), opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		kv, err := NewSQLKV(ctx, db, Dialect(opts.Backend))
		if err != nil {
			db.Close()
			return nil, err
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
