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

package main

import (
	"sync"

	"github.com/hearthd/hearth/pkg/logger"
	"github.com/hearthd/hearth/pkg/reconciler"
)

// logSink is the headless presentation boundary: it records the latest view
// and emits notifications and job statuses as log events. A desktop frontend
// replaces this with a real tray/panel implementation.
type logSink struct {
	log logger.Logger

	mu       sync.Mutex
	lastView []reconciler.EntityView
}

func (s *logSink) OnViewUpdated(entities []reconciler.EntityView) {
	s.mu.Lock()
	s.lastView = entities
	s.mu.Unlock()

	s.log.Info().Int("entities", len(entities)).Msg("Entity view updated")

	for _, e := range entities {
		event := s.log.Debug().Str("entity_id", e.ID).Str("label", e.Label)
		if e.Icon != nil {
			event = event.Str("icon", e.Icon.Name)
		}

		event.Msg("Entity")
	}
}

func (s *logSink) OnNotification(title, message string) {
	s.log.Info().Str("title", title).Str("message", message).Msg("New notification")
}

func (s *logSink) OnStatus(job string, err error) {
	if err != nil {
		s.log.Warn().Err(err).Str("job", job).Msg("Job status")
	}
}

// View returns the most recently published entity view.
func (s *logSink) View() []reconciler.EntityView {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastView
}
