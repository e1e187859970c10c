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

// Package agentmetrics collects local system metrics to expose as hub sensor
// entities when this machine acts as an agent.
package agentmetrics

import (
	"regexp"
	"strings"
)

// Option describes a metric that can be exposed to the hub.
type Option struct {
	Key         string
	Label       string
	Description string
}

const (
	KeyDiskFreeGB        = "disk_free_gb"
	KeyMemoryUsedPercent = "memory_used_percent"
	KeyGPUUsagePercent   = "gpu_usage_percent"
	KeyUptimeSeconds     = "uptime_seconds"
)

// Options lists every metric the agent can publish, in display order.
func Options() []Option {
	return []Option{
		{
			Key:         KeyDiskFreeGB,
			Label:       "Available disk space (GB)",
			Description: "Reports the remaining free space on the system volume in gigabytes.",
		},
		{
			Key:         KeyMemoryUsedPercent,
			Label:       "Memory usage (%)",
			Description: "Percentage of physical memory currently in use on this machine.",
		},
		{
			Key:         KeyGPUUsagePercent,
			Label:       "GPU load (%)",
			Description: "Approximate GPU utilization gathered from available system tools.",
		},
		{
			Key:         KeyUptimeSeconds,
			Label:       "System uptime (seconds)",
			Description: "Seconds elapsed since the operating system booted.",
		},
	}
}

// slugFallback is used when a device label slugs down to nothing.
const slugFallback = "agent"

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a device label into an identifier fragment: lower-cased,
// non-alphanumeric runs collapsed to single underscores, trimmed. An empty
// result falls back to a fixed default token.
func Slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))

	slug := nonAlphanumeric.ReplaceAllString(name, "_")
	slug = strings.Trim(slug, "_")

	if slug == "" {
		return slugFallback
	}

	return slug
}

// DestinationID derives the hub entity ID a metric is published under.
func DestinationID(deviceLabel, metricKey string) string {
	return "sensor." + Slugify(deviceLabel) + "_" + metricKey
}
