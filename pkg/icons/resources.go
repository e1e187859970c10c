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

package icons

import "embed"

//go:embed resources/*.svg
var builtins embed.FS

// DefaultResource is the built-in icon used for domains without a mapping.
const DefaultResource = "entity-generic.svg"

// domainResources maps an entity domain to its built-in fallback icon.
var domainResources = map[string]string{
	"automation":    "entity-script.svg",
	"binary_sensor": "entity-sensor.svg",
	"button":        "entity-button.svg",
	"climate":       "entity-climate.svg",
	"cover":         "entity-cover.svg",
	"fan":           "entity-fan.svg",
	"input_boolean": "entity-switch.svg",
	"light":         "entity-light.svg",
	"lock":          "entity-lock.svg",
	"media_player":  "entity-media-player.svg",
	"scene":         "entity-scene.svg",
	"script":        "entity-script.svg",
	"sensor":        "entity-sensor.svg",
	"switch":        "entity-switch.svg",
}

// DomainResource returns the built-in resource name for an entity domain.
func DomainResource(domain string) string {
	if name, ok := domainResources[domain]; ok {
		return name
	}

	return DefaultResource
}

func loadBuiltin(name string) ([]byte, error) {
	return builtins.ReadFile("resources/" + name)
}
