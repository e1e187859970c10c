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

// Package models contains the shared data types exchanged between the hub
// gateway and the reconciliation engine.
package models

import "strings"

// EntityState is the raw per-entity record returned by the hub.
type EntityState struct {
	ID         string                 `json:"entity_id"`
	State      string                 `json:"state,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

// EntityMetadata is the subset of entity attributes the engine cares about:
// a display label and an optional icon descriptor. Either Icon (a symbolic
// icon name such as "mdi:lightbulb") or Picture (a hub-relative image path)
// may be set; both may be empty.
type EntityMetadata struct {
	ID      string
	Label   string
	Icon    string
	Picture string
}

// Notification is a single persistent notification held by the hub.
type Notification struct {
	ID      string `json:"notification_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// MetricValue is one collected metric sample: a string state plus the
// attribute map published alongside it.
type MetricValue struct {
	State      string
	Attributes map[string]interface{}
}

// Domain returns the category prefix of an entity identifier, the substring
// before the first dot. An identifier without a dot is its own domain.
func Domain(entityID string) string {
	domain, _, _ := strings.Cut(entityID, ".")
	return domain
}

// MetadataFromState extracts display metadata from a raw entity state,
// falling back to the entity ID when no friendly name is set.
func MetadataFromState(state EntityState) EntityMetadata {
	meta := EntityMetadata{ID: state.ID, Label: state.ID}

	if name, ok := state.Attributes["friendly_name"].(string); ok && name != "" {
		meta.Label = name
	}

	if icon, ok := state.Attributes["icon"].(string); ok {
		meta.Icon = icon
	}

	if picture, ok := state.Attributes["entity_picture"].(string); ok {
		meta.Picture = picture
	}

	return meta
}
