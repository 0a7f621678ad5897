/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package objstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keeps objects as plain string values under a namespace, so several
// server instances can share one render cache.
type Redis struct {
	rdb       *redis.Client
	namespace string
}

// NewRedis connects to url (redis://...). A value that does not parse as a
// URL is used as host:port.
func NewRedis(url, namespace string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		if url == "" {
			return nil, errors.New("redis url is empty")
		}
		opt = &redis.Options{Addr: url}
	}
	return &Redis{rdb: redis.NewClient(opt), namespace: namespace}, nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(rdb *redis.Client, namespace string) *Redis {
	return &Redis{rdb: rdb, namespace: namespace}
}

// Ping checks connectivity.
func (s *Redis) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *Redis) key(k string) (string, error) {
	if err := validKey(k); err != nil {
		return "", err
	}
	return s.namespace + k, nil
}

func (s *Redis) Exists(ctx context.Context, key string) (bool, error) {
	k, err := s.key(key)
	if err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, k).Result()
	return n > 0, err
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, err
	}
	data, err := s.rdb.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

func (s *Redis) Put(ctx context.Context, key string, data []byte) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, k, data, 0).Err()
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	return s.rdb.Del(ctx, k).Err()
}

// DeletePrefix scans for matching keys and unlinks them in batches.
func (s *Redis) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	iter := s.rdb.Scan(ctx, 0, s.namespace+prefix+"*", 256).Iterator()
	var batch []string
	n := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		removed, err := s.rdb.Unlink(ctx, batch...).Result()
		n += int(removed)
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 256 {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return n, err
	}
	return n, flush()
}

func (s *Redis) Close() error { return s.rdb.Close() }
