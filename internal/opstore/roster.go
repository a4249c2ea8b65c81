package opstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RosterStore tracks which clock-sync slaves have been seen recently,
// keyed by their UDP source address. A multi-instance deployment
// running several ledctrl cores behind one Art-Net/sync master uses
// this to report which instances are actually alive, not just
// configured.
type RosterStore struct {
	client *redis.Client
	mu     sync.RWMutex
	prefix string
	ttl    time.Duration
}

// RosterConfig holds Redis connection settings for RosterStore.
type RosterConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration // how long a peer is considered alive after its last seen update
}

// NewRosterStore connects to Redis and returns a RosterStore.
func NewRosterStore(cfg RosterConfig) (*RosterStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6379
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ledctrl:roster"
	}
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("opstore: connect to redis: %w", err)
	}

	return &RosterStore{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    cfg.TTL,
	}, nil
}

// Seen marks addr as alive as of now, refreshing its TTL.
func (r *RosterStore) Seen(ctx context.Context, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(addr)
	if err := r.client.Set(ctx, key, time.Now().Format(time.RFC3339), r.ttl).Err(); err != nil {
		return fmt.Errorf("opstore: record peer %s: %w", addr, err)
	}
	return nil
}

// Peers returns every currently-alive peer address.
func (r *RosterStore) Peers(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pattern := r.prefix + ":*"
	var cursor uint64
	var peers []string

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("opstore: scan peers: %w", err)
		}
		for _, key := range keys {
			peers = append(peers, key[len(r.prefix)+1:])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return peers, nil
}

// Forget removes a peer immediately, e.g. on clean shutdown.
func (r *RosterStore) Forget(ctx context.Context, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Del(ctx, r.key(addr)).Err()
}

// Close closes the Redis connection.
func (r *RosterStore) Close() error {
	return r.client.Close()
}

func (r *RosterStore) key(addr string) string {
	return fmt.Sprintf("%s:%s", r.prefix, addr)
}
