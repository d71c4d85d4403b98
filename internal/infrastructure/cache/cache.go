// Package cache adds a Redis read-through cache in front of record store listings.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"club-overview-console/internal/domain"
	"club-overview-console/internal/models"
	"club-overview-console/pkg/logging"
	"club-overview-console/pkg/metrics"
)

const keyPrefix = "club-console:list:"

// ErrMiss is returned by a KV when the key is absent.
var ErrMiss = errors.New("cache miss")

// KV is the slice of Redis the cache uses.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	Client *redis.Client
}

func (r RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (r RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r RedisKV) Del(ctx context.Context, keys ...string) error {
	return r.Client.Del(ctx, keys...).Err()
}

// NewRedisClient connects to addr and pings it. It returns nil when Redis is unreachable so
// callers can run without the cache.
func NewRedisClient(ctx context.Context, addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil
	}
	return client
}

// RecordStore caches GetAll results per collection and drops the entry on every Put to that
// collection. Get is never cached. Cache failures fall through to the wrapped store.
type RecordStore struct {
	next   domain.RecordStore
	kv     KV
	ttl    atomic.Int64
	logger *logging.ComponentLogger
}

func NewRecordStore(next domain.RecordStore, kv KV, ttl time.Duration, logger *logging.Logger) *RecordStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &RecordStore{next: next, kv: kv, logger: logger.WithComponent("record_cache")}
	c.SetTTL(ttl)
	return c
}

// SetTTL changes the lifetime of entries written from now on. Values of zero or less mean
// five minutes.
func (c *RecordStore) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c.ttl.Store(int64(ttl))
}

var _ domain.RecordStore = (*RecordStore)(nil)

func (c *RecordStore) GetAll(ctx context.Context, collection string) ([]domain.StoredDocument, error) {
	key := keyPrefix + collection
	b, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		var docs []domain.StoredDocument
		if err := json.Unmarshal(b, &docs); err == nil {
			metrics.CacheLookups.WithLabelValues(collection, "hit").Inc()
			return docs, nil
		}
		c.logger.Warn("Dropping undecodable cache entry", logging.String("collection", collection))
	case !errors.Is(err, ErrMiss):
		c.logger.Warn("Cache read failed", logging.String("collection", collection), logging.Error(err))
	}
	metrics.CacheLookups.WithLabelValues(collection, "miss").Inc()

	docs, err := c.next.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(docs); err == nil {
		if err := c.kv.Set(ctx, key, b, time.Duration(c.ttl.Load())); err != nil {
			c.logger.Warn("Cache write failed", logging.String("collection", collection), logging.Error(err))
		}
	}
	return docs, nil
}

func (c *RecordStore) Get(ctx context.Context, collection, id string) (models.Document, error) {
	return c.next.Get(ctx, collection, id)
}

func (c *RecordStore) Put(ctx context.Context, collection, id string, doc models.Document, opts domain.PutOptions) error {
	err := c.next.Put(ctx, collection, id, doc, opts)
	// invalidate even on error: the write may have landed before the failure was reported
	if derr := c.kv.Del(context.WithoutCancel(ctx), keyPrefix+collection); derr != nil {
		c.logger.Warn("Cache invalidation failed", logging.String("collection", collection), logging.Error(derr))
	}
	return err
}
