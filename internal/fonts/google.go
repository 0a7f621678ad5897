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
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// maxFontBytes bounds a single download.
const maxFontBytes = 16 << 20

var cssSrcRe = regexp.MustCompile(`src:\s*url\(([^)]+)\)\s*format\('(?:truetype|opentype)'\)`)

// Google fetches faces through the Google Fonts css2 API. The stylesheet is
// requested with a plain user agent so the service answers with TrueType
// URLs, which are then downloaded.
type Google struct {
	APIURL string
	client *http.Client
}

// NewGoogle creates a source for apiURL, for example
// https://fonts.googleapis.com/css2.
func NewGoogle(apiURL string) *Google {
	return &Google{APIURL: strings.TrimRight(apiURL, "/"), client: &http.Client{Timeout: 15 * time.Second}}
}

func (g *Google) Fetch(ctx context.Context, k Key) ([]byte, error) {
	k = k.Normalize()
	if g.APIURL == "" || k.Family == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	ital := 0
	if k.Italic() {
		ital = 1
	}
	q := url.Values{}
	q.Set("family", fmt.Sprintf("%s:ital,wght@%d,%d", k.Family, ital, k.Weight))
	css, err := g.get(ctx, g.APIURL+"?"+q.Encode(), 1<<20)
	if err != nil {
		return nil, err
	}
	m := cssSrcRe.FindSubmatch(css)
	if m == nil {
		return nil, fmt.Errorf("%w: %s (no truetype source in stylesheet)", ErrNotFound, k)
	}
	src := strings.Trim(string(m[1]), `"'`)
	return g.get(ctx, src, maxFontBytes)
}

func (g *Google) get(ctx context.Context, u string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "rendless")
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, u, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("fetch %s: %s", u, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	return data, nil
}
