// Package redisstore implements statestore.KV against Redis using
// SET/GET/SETNX. It is the production job-state backend, paired with
// redisbroker for the pub/sub transport.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Sunzheini/AegisAI-sub000/internal/broker"
)

// KV adapts a *redis.Client to statestore.KV.
type KV struct {
	client *redis.Client
}

// New wraps an already-configured *redis.Client.
func New(client *redis.Client) *KV {
	return &KV{client: client}
}

func (k *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := k.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", broker.ErrTransport, key, err)
	}
	return nil
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := k.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", broker.ErrTransport, key, err)
	}
	return val, true, nil
}

func (k *KV) CreateIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	created, err := k.client.SetNX(ctx, key, value, 0).Result()
	if err != nil {
		return false, fmt.Errorf("%w: setnx %s: %v", broker.ErrTransport, key, err)
	}
	return created, nil
}

func (k *KV) Close() error {
	return k.client.Close()
}
