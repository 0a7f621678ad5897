/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package fonts

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/image/font/opentype"
)

// Cached memoises the bytes of another source. Only data that parses as a
// font is stored, so a broken download is retried on the next request.
type Cached struct {
	src Source
	c   *cache.Cache
}

// NewCached wraps src; entries expire after ttl (0 keeps them forever).
func NewCached(src Source, ttl time.Duration) *Cached {
	exp := ttl
	if exp <= 0 {
		exp = cache.NoExpiration
	}
	return &Cached{src: src, c: cache.New(exp, 10*time.Minute)}
}

func (c *Cached) Fetch(ctx context.Context, k Key) ([]byte, error) {
	k = k.Normalize()
	id := k.String()
	if v, ok := c.c.Get(id); ok {
		return v.([]byte), nil
	}
	data, err := c.src.Fetch(ctx, k)
	if err != nil {
		return nil, err
	}
	if _, err := opentype.Parse(data); err != nil {
		return nil, fmt.Errorf("font %s: invalid data: %w", k, err)
	}
	c.c.Set(id, data, cache.DefaultExpiration)
	return data, nil
}

// Len reports the number of memoised faces.
func (c *Cached) Len() int { return c.c.ItemCount() }
