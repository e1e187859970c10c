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

package agentmetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthd/hearth/pkg/logger"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "kitchen", expected: "kitchen"},
		{name: "spaces and punctuation", input: "Living Room PC!!", expected: "living_room_pc"},
		{name: "leading and trailing junk", input: "--Office--", expected: "office"},
		{name: "mixed runs collapse", input: "a  b..c", expected: "a_b_c"},
		{name: "whitespace only falls back", input: "   ", expected: "agent"},
		{name: "symbols only fall back", input: "!!!", expected: "agent"},
		{name: "empty falls back", input: "", expected: "agent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestDestinationID(t *testing.T) {
	assert.Equal(t, "sensor.living_room_pc_memory_used_percent",
		DestinationID("Living Room PC", KeyMemoryUsedPercent))
	assert.Equal(t, "sensor.agent_uptime_seconds", DestinationID("", KeyUptimeSeconds))
}

func newTestCollector() *Collector {
	c := NewCollector(logger.NewTestLogger())

	c.diskUsage = func(_ context.Context, _ string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 100 * bytesPerGB}, nil
	}
	c.virtMem = func(_ context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{
			UsedPercent: 41.237,
			Total:       16 * bytesPerGB,
			Available:   8 * bytesPerGB,
		}, nil
	}
	c.bootTime = func(_ context.Context) (uint64, error) {
		return 1000, nil
	}
	c.gpuQuery = func(_ context.Context) (string, error) {
		return "37\n", nil
	}
	c.now = func() time.Time {
		return time.Unix(4600, 0)
	}

	return c
}

func TestCollector_Collect(t *testing.T) {
	c := newTestCollector()

	got := c.Collect(context.Background(),
		[]string{KeyDiskFreeGB, KeyMemoryUsedPercent, KeyGPUUsagePercent, KeyUptimeSeconds})
	require.Len(t, got, 4)

	assert.Equal(t, "100", got[KeyDiskFreeGB].State)
	assert.Equal(t, "GB", got[KeyDiskFreeGB].Attributes["unit_of_measurement"])

	assert.Equal(t, "41.24", got[KeyMemoryUsedPercent].State)
	assert.Equal(t, 16.0, got[KeyMemoryUsedPercent].Attributes["total_gb"])
	assert.Equal(t, 8.0, got[KeyMemoryUsedPercent].Attributes["available_gb"])

	assert.Equal(t, "37", got[KeyGPUUsagePercent].State)

	assert.Equal(t, "3600", got[KeyUptimeSeconds].State)
	assert.Equal(t, "duration", got[KeyUptimeSeconds].Attributes["device_class"])
}

func TestCollector_CollectSubsetOnly(t *testing.T) {
	c := newTestCollector()

	got := c.Collect(context.Background(), []string{KeyUptimeSeconds})
	require.Len(t, got, 1)
	assert.Contains(t, got, KeyUptimeSeconds)
}

func TestCollector_UnknownKeyIgnored(t *testing.T) {
	c := newTestCollector()

	got := c.Collect(context.Background(), []string{"not_a_metric"})
	assert.Empty(t, got)
}

func TestCollector_FailedMetricOmitted(t *testing.T) {
	c := newTestCollector()
	c.virtMem = func(_ context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("probe failed")
	}

	got := c.Collect(context.Background(), []string{KeyMemoryUsedPercent, KeyUptimeSeconds})

	assert.NotContains(t, got, KeyMemoryUsedPercent, "failed metric must be absent, not zero")
	assert.Contains(t, got, KeyUptimeSeconds)
}

func TestCollector_GPUUnavailableNeverFails(t *testing.T) {
	tests := []struct {
		name  string
		query func(ctx context.Context) (string, error)
	}{
		{
			name: "nvidia-smi missing",
			query: func(_ context.Context) (string, error) {
				return "", errors.New("executable file not found")
			},
		},
		{
			name: "empty output",
			query: func(_ context.Context) (string, error) {
				return "\n", nil
			},
		},
		{
			name: "garbage output",
			query: func(_ context.Context) (string, error) {
				return "N/A\n", nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCollector()
			c.gpuQuery = tt.query

			got := c.Collect(context.Background(), []string{KeyGPUUsagePercent})
			require.Contains(t, got, KeyGPUUsagePercent)
			assert.Equal(t, "unavailable", got[KeyGPUUsagePercent].State)
		})
	}
}

func TestCollector_DiskFallsBackToRoot(t *testing.T) {
	c := newTestCollector()

	calls := 0
	c.diskUsage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		calls++
		if path != "/" {
			return nil, errors.New("not mounted")
		}

		return &disk.UsageStat{Free: 5 * bytesPerGB}, nil
	}

	got := c.Collect(context.Background(), []string{KeyDiskFreeGB})
	require.Contains(t, got, KeyDiskFreeGB)
	assert.Equal(t, "5", got[KeyDiskFreeGB].State)
}

func TestCollector_UptimeClampsNegative(t *testing.T) {
	c := newTestCollector()
	c.bootTime = func(_ context.Context) (uint64, error) { return 10000, nil }
	c.now = func() time.Time { return time.Unix(5000, 0) }

	got := c.Collect(context.Background(), []string{KeyUptimeSeconds})
	require.Contains(t, got, KeyUptimeSeconds)
	assert.Equal(t, "0", got[KeyUptimeSeconds].State)
}

func TestOptions_KeysAreUnique(t *testing.T) {
	seen := make(map[string]struct{})

	for _, opt := range Options() {
		require.NotEmpty(t, opt.Key)
		require.NotEmpty(t, opt.Label)
		_, dup := seen[opt.Key]
		require.False(t, dup, "duplicate metric key %q", opt.Key)
		seen[opt.Key] = struct{}{}
	}
}
