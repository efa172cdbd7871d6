package kv

import (
	"context"
	"time"
)

// cache is the subset of *olric.Client the store needs.
type cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Close(ctx context.Context) error
}

// OlricStore keeps records in an Olric DMap so several hub processes share them.
type OlricStore struct {
	cache cache
}

// NewOlricStore wraps a connected Olric client.
func NewOlricStore(c cache) *OlricStore {
	return &OlricStore{cache: c}
}

func (s *OlricStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.cache.Get(ctx, key)
}

func (s *OlricStore) Put(ctx context.Context, key, value string) error {
	return s.cache.Put(ctx, key, value)
}

func (s *OlricStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.cache.Close(ctx)
}
