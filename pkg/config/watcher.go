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

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hearthd/hearth/pkg/logger"
)

const debounceWindow = 500 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the
// validated result to a callback. Editors and the settings UI tend to write
// via temp-file renames, so events are debounced and the whole parent
// directory is watched.
type Watcher struct {
	path     string
	onChange func(*Config)
	log      logger.Logger
	fw       *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher creates a watcher for the config file at path. onChange runs on
// the watcher goroutine with an already-validated config.
func NewWatcher(path string, onChange func(*Config), log logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &Watcher{
		path:     path,
		onChange: onChange,
		log:      log,
		fw:       fw,
		done:     make(chan struct{}),
	}, nil
}

// Start processes filesystem events until Stop is called or ctx ends.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.fw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	var debounce *time.Timer

	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			if debounce != nil && !debounce.Stop() {
				select {
				case <-fire:
				default:
				}
			}

			debounce = time.NewTimer(debounceWindow)
			fire = debounce.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			w.log.Warn().Err(err).Msg("Config watcher error")
		case <-fire:
			debounce = nil
			fire = nil

			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	cfg := &Config{}

	if err := LoadAndValidate(ctx, w.path, cfg); err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("Ignoring unreadable config change")
		return
	}

	w.log.Info().Str("path", w.path).Msg("Config file changed, applying")
	w.onChange(cfg)
}
