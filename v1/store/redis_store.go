package store

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
)

const (
	defaultRedisOpTimeout = 5 * time.Second
	defaultTitlePrefix    = "title:"
)

// RedisTitleStore implements TitleStore on a Redis backend. Titles are kept
// as JSON values under a common key prefix so ListTitles can scan them.
type RedisTitleStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// RedisOption configures a RedisTitleStore.
type RedisOption func(*RedisTitleStore)

// WithRedisTimeout sets the operation timeout for Redis calls.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(s *RedisTitleStore) {
		s.timeout = d
	}
}

// WithRedisPrefix overrides the key prefix used for title records.
func WithRedisPrefix(p string) RedisOption {
	return func(s *RedisTitleStore) {
		s.prefix = p
	}
}

// NewRedisTitleStore returns a new RedisTitleStore using the provided client.
func NewRedisTitleStore(client *redis.Client, opts ...RedisOption) *RedisTitleStore {
	s := &RedisTitleStore{
		client:  client,
		prefix:  defaultTitlePrefix,
		timeout: defaultRedisOpTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func mapRedisErr(err error) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// GetTitle implements TitleStore.GetTitle.
func (s *RedisTitleStore) GetTitle(ctx context.Context, id string) (catalog.Title, bool, error) {
	var zero catalog.Title
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(cctx, s.prefix+id).Bytes()
	if err == redis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, mapRedisErr(err)
	}
	var t catalog.Title
	if err := json.Unmarshal(data, &t); err != nil {
		return zero, false, err
	}
	return t, true, nil
}

// SaveTitle implements TitleStore.SaveTitle.
func (s *RedisTitleStore) SaveTitle(ctx context.Context, t catalog.Title) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return mapRedisErr(s.client.Set(cctx, s.prefix+t.ID, data, 0).Err())
}

// ListTitles implements TitleStore.ListTitles.
func (s *RedisTitleStore) ListTitles(ctx context.Context) ([]catalog.Title, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var out []catalog.Title
	iter := s.client.Scan(cctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(cctx) {
		data, err := s.client.Get(cctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, mapRedisErr(err)
		}
		var t catalog.Title
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := iter.Err(); err != nil {
		return nil, mapRedisErr(err)
	}
	return out, nil
}
