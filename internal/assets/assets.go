/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package assets fetches and decodes the images referenced by image nodes.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUnavailable is returned when an image cannot be fetched or decoded.
var ErrUnavailable = errors.New("image unavailable")

// maxImageBytes bounds a single download.
const maxImageBytes = 20 << 20

// Image is a decoded asset together with its original bytes.
type Image struct {
	Image  image.Image
	Format string // png, jpeg, gif, webp, bmp
	Data   []byte
}

// Width and Height return the natural pixel size.
func (i *Image) Width() float64  { return float64(i.Image.Bounds().Dx()) }
func (i *Image) Height() float64 { return float64(i.Image.Bounds().Dy()) }

// MIME returns the media type of the original bytes.
func (i *Image) MIME() string { return "image/" + i.Format }

// DataURI encodes the original bytes for embedding in SVG.
func (i *Image) DataURI() string {
	return "data:" + i.MIME() + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Fetcher resolves an image source to a decoded image.
type Fetcher interface {
	Fetch(ctx context.Context, src string) (*Image, error)
}

// Loader fetches http(s) and data: URIs, plus local paths when AllowFiles
// is set. Decoded images are memoised for a short time.
type Loader struct {
	AllowFiles bool
	client     *http.Client
	memo       *cache.Cache
}

func NewLoader(ttl time.Duration) *Loader {
	return &Loader{
		client: &http.Client{Timeout: 15 * time.Second},
		memo:   cache.New(ttl, 2*ttl+time.Minute),
	}
}

func (l *Loader) Fetch(ctx context.Context, src string) (*Image, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("%w: empty source", ErrUnavailable)
	}
	if v, ok := l.memo.Get(src); ok {
		return v.(*Image), nil
	}
	data, err := l.read(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, shorten(src), err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, shorten(src), err)
	}
	l.memo.SetDefault(src, img)
	return img, nil
}

func (l *Loader) read(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "data:") {
		return decodeDataURI(src)
	}
	u, err := url.Parse(src)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return l.get(ctx, u.String())
	}
	if l.AllowFiles && (err != nil || u.Scheme == "" || u.Scheme == "file") {
		p := src
		if err == nil && u.Scheme == "file" {
			p = u.Path
		}
		return os.ReadFile(p)
	}
	return nil, fmt.Errorf("unsupported source")
}

func (l *Loader) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	return []byte(s), err
}

// Decode sniffs and decodes png, jpeg, gif, webp or bmp bytes.
func Decode(data []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Image{Image: img, Format: format, Data: data}, nil
}

func shorten(src string) string {
	if len(src) > 64 {
		return src[:61] + "..."
	}
	return src
}
