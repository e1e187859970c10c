/*
 * Copyright 2026 The Hearth Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package icons resolves a visual resource for an entity, preferring
// hub-provided images and falling back to built-in per-domain icons, with
// memoization of both positive and negative outcomes.
package icons

import (
	"bytes"
	"context"
	"errors"
	"image"

	// Registered for image.DecodeConfig sniffing of hub-served bytes.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/hearthd/hearth/pkg/logger"
	"github.com/hearthd/hearth/pkg/models"
)

// ErrDecode indicates fetched bytes were not a usable image. It is treated as
// a resolution miss, never as a fatal failure.
var ErrDecode = errors.New("undecodable image data")

// Icon is a resolved visual resource handle.
type Icon struct {
	// Name is the resource identifier this icon resolved from: a symbolic
	// icon name, a picture path, or a built-in resource file name.
	Name string
	// Data holds the raw image bytes.
	Data []byte
	// MIME is the sniffed content type ("image/svg+xml", "image/png", ...).
	MIME string
	// Builtin marks icons loaded from the embedded fallback set.
	Builtin bool
}

// Fetcher is the subset of the hub gateway the resolver needs.
type Fetcher interface {
	BaseURL() string
	FetchIconBytes(ctx context.Context, name string) ([]byte, error)
	FetchPictureBytes(ctx context.Context, pathOrURL string) ([]byte, error)
}

const (
	scopeRemote = "remote"
	scopeLocal  = "local"
)

type cacheKey struct {
	scope string
	name  string
}

// Resolver resolves entity icons through an ordered strategy chain and caches
// every outcome, including misses, so repeated reconciliation cycles never
// repeat a lookup for unchanged inputs. Resolvers are not safe for concurrent
// use; the reconciler serializes access.
type Resolver struct {
	fetcher Fetcher
	cache   map[cacheKey]*Icon
	log     logger.Logger
}

// NewResolver creates a resolver with an empty cache. fetcher may be nil, in
// which case only built-in fallbacks resolve.
func NewResolver(fetcher Fetcher, log logger.Logger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		cache:   make(map[cacheKey]*Icon),
		log:     log,
	}
}

// Resolve returns the icon for an entity, or nil when nothing usable could be
// resolved. Resolution order: hub picture, hub symbolic icon, built-in domain
// fallback. A cached outcome, positive or negative, short-circuits all later
// steps.
func (r *Resolver) Resolve(ctx context.Context, meta models.EntityMetadata) *Icon {
	strategies := []func(context.Context, models.EntityMetadata) (*Icon, bool){
		r.resolvePicture,
		r.resolveSymbolic,
		r.resolveDomain,
	}

	for _, strategy := range strategies {
		if icon, done := strategy(ctx, meta); done {
			return icon
		}
	}

	return nil
}

// Clear drops all cached entries, positive and negative. Called on
// reconfiguration: a different hub may serve different content for the same
// resource name.
func (r *Resolver) Clear() {
	r.cache = make(map[cacheKey]*Icon)
}

func (r *Resolver) resolvePicture(ctx context.Context, meta models.EntityMetadata) (*Icon, bool) {
	if meta.Picture == "" || r.fetcher == nil {
		return nil, false
	}

	key := r.remoteKey(meta.Picture)
	if icon, hit := r.cache[key]; hit {
		return icon, icon != nil
	}

	data, err := r.fetcher.FetchPictureBytes(ctx, meta.Picture)
	icon := r.cacheFetched(key, data, err, meta.Picture)

	return icon, icon != nil
}

func (r *Resolver) resolveSymbolic(ctx context.Context, meta models.EntityMetadata) (*Icon, bool) {
	if meta.Icon == "" || r.fetcher == nil {
		return nil, false
	}

	key := r.remoteKey(meta.Icon)
	if icon, hit := r.cache[key]; hit {
		return icon, icon != nil
	}

	data, err := r.fetcher.FetchIconBytes(ctx, meta.Icon)
	icon := r.cacheFetched(key, data, err, meta.Icon)

	return icon, icon != nil
}

func (r *Resolver) resolveDomain(_ context.Context, meta models.EntityMetadata) (*Icon, bool) {
	domain := models.Domain(meta.ID)

	key := cacheKey{scope: scopeLocal, name: domain}
	if icon, hit := r.cache[key]; hit {
		return icon, true
	}

	resource := DomainResource(domain)

	data, err := loadBuiltin(resource)
	if err != nil {
		r.log.Warn().Err(err).Str("resource", resource).Msg("Built-in icon missing")
		r.cache[key] = nil

		return nil, true
	}

	icon := &Icon{Name: resource, Data: data, MIME: "image/svg+xml", Builtin: true}
	r.cache[key] = icon

	return icon, true
}

// cacheFetched records the outcome of a remote fetch, mapping fetch and
// decode failures to a negative entry.
func (r *Resolver) cacheFetched(key cacheKey, data []byte, fetchErr error, name string) *Icon {
	if fetchErr != nil {
		r.log.Debug().Err(fetchErr).Str("resource", name).Msg("Icon fetch failed, caching miss")
		r.cache[key] = nil

		return nil
	}

	mime, err := sniffImage(data)
	if err != nil {
		r.log.Debug().Err(err).Str("resource", name).Msg("Icon bytes undecodable, caching miss")
		r.cache[key] = nil

		return nil
	}

	icon := &Icon{Name: name, Data: data, MIME: mime}
	r.cache[key] = icon

	return icon
}

// remoteKey scopes a remote resource name by hub address, since different
// hubs serve different content for the same name.
func (r *Resolver) remoteKey(name string) cacheKey {
	return cacheKey{scope: scopeRemote, name: r.fetcher.BaseURL() + "|" + name}
}

// sniffImage validates raw bytes as a supported image and returns the MIME
// type. SVG documents are detected textually; raster formats go through the
// registered image decoders.
func sniffImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrDecode
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}

	if bytes.Contains(head, []byte("<svg")) || bytes.Contains(head, []byte("<?xml")) {
		return "image/svg+xml", nil
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", ErrDecode
	}

	return "image/" + format, nil
}
