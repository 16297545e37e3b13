package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Redis is a Store shared between API replicas. Expiry is delegated to key TTLs.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "launchpad:session"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *Redis) key(userID string, kind Kind) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, userID, kind)
}

func (r *Redis) Get(ctx context.Context, userID string, kind Kind) (Payload, error) {
	data, err := r.client.Get(ctx, r.key(userID, kind)).Bytes()
	return r.decode("get session", userID, kind, data, err)
}

func (r *Redis) Put(ctx context.Context, userID string, payload Payload) error {
	if err := payload.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode session payload")
	}
	if err := r.client.Set(ctx, r.key(userID, payload.Kind), data, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "put session")
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, userID string, kind Kind) error {
	if err := r.client.Del(ctx, r.key(userID, kind)).Err(); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

func (r *Redis) Take(ctx context.Context, userID string, kind Kind) (Payload, error) {
	data, err := r.client.GetDel(ctx, r.key(userID, kind)).Bytes()
	return r.decode("take session", userID, kind, data, err)
}

func (r *Redis) decode(op, userID string, kind Kind, data []byte, err error) (Payload, error) {
	if errors.Is(err, redis.Nil) {
		return Payload{}, notFound(op, userID, kind)
	}
	if err != nil {
		return Payload{}, errors.Wrap(err, op)
	}
	return Decode(data)
}

var _ Store = (*Redis)(nil)
