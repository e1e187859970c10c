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
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/hearthd/hearth/pkg/logger"
	"github.com/hearthd/hearth/pkg/models"
)

const bytesPerGB = 1 << 30

// Collector gathers the enabled metrics. A metric that cannot be computed in
// a given cycle is simply absent from the result; callers treat that as
// "temporarily unavailable", not as an error.
type Collector struct {
	log logger.Logger

	// Overridable probes, swapped out in tests.
	diskUsage func(ctx context.Context, path string) (*disk.UsageStat, error)
	virtMem   func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	bootTime  func(ctx context.Context) (uint64, error)
	gpuQuery  func(ctx context.Context) (string, error)
	now       func() time.Time
}

// NewCollector builds a collector backed by gopsutil and nvidia-smi.
func NewCollector(log logger.Logger) *Collector {
	return &Collector{
		log:       log,
		diskUsage: disk.UsageWithContext,
		virtMem:   mem.VirtualMemoryWithContext,
		bootTime:  host.BootTimeWithContext,
		gpuQuery:  queryNvidiaSMI,
		now:       time.Now,
	}
}

// Collect returns the subset of the requested metrics that could be computed
// this cycle, keyed by metric key.
func (c *Collector) Collect(ctx context.Context, keys []string) map[string]models.MetricValue {
	collected := make(map[string]models.MetricValue, len(keys))

	for _, key := range keys {
		var (
			value *models.MetricValue
			err   error
		)

		switch key {
		case KeyDiskFreeGB:
			value, err = c.collectDiskFree(ctx)
		case KeyMemoryUsedPercent:
			value, err = c.collectMemoryPercent(ctx)
		case KeyGPUUsagePercent:
			value = c.collectGPUUsage(ctx)
		case KeyUptimeSeconds:
			value, err = c.collectUptime(ctx)
		default:
			continue
		}

		if err != nil {
			c.log.Debug().Err(err).Str("metric", key).Msg("Metric unavailable this cycle")
			continue
		}

		if value != nil {
			collected[key] = *value
		}
	}

	return collected
}

func (c *Collector) collectDiskFree(ctx context.Context) (*models.MetricValue, error) {
	path, err := os.UserHomeDir()
	if err != nil {
		path = "/"
	}

	usage, err := c.diskUsage(ctx, path)
	if err != nil {
		usage, err = c.diskUsage(ctx, "/")
		if err != nil {
			return nil, err
		}
	}

	freeGB := round2(float64(usage.Free) / bytesPerGB)

	return &models.MetricValue{
		State: formatFloat(freeGB),
		Attributes: map[string]interface{}{
			"unit_of_measurement": "GB",
			"icon":                "mdi:harddisk",
		},
	}, nil
}

func (c *Collector) collectMemoryPercent(ctx context.Context) (*models.MetricValue, error) {
	vm, err := c.virtMem(ctx)
	if err != nil {
		return nil, err
	}

	return &models.MetricValue{
		State: formatFloat(round2(vm.UsedPercent)),
		Attributes: map[string]interface{}{
			"unit_of_measurement": "%",
			"icon":                "mdi:memory",
			"total_gb":            round2(float64(vm.Total) / bytesPerGB),
			"available_gb":        round2(float64(vm.Available) / bytesPerGB),
		},
	}, nil
}

// collectGPUUsage never fails: machines without a GPU report the sensor as
// "unavailable" so the entity still exists on the hub.
func (c *Collector) collectGPUUsage(ctx context.Context) *models.MetricValue {
	attributes := map[string]interface{}{
		"unit_of_measurement": "%",
		"icon":                "mdi:gpu",
	}

	output, err := c.gpuQuery(ctx)
	if err != nil {
		return &models.MetricValue{State: "unavailable", Attributes: attributes}
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return &models.MetricValue{State: "unavailable", Attributes: map[string]interface{}{"icon": "mdi:gpu"}}
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(lines[0]), 64)
	if err != nil {
		return &models.MetricValue{State: "unavailable", Attributes: map[string]interface{}{"icon": "mdi:gpu"}}
	}

	return &models.MetricValue{State: formatFloat(round2(value)), Attributes: attributes}
}

func (c *Collector) collectUptime(ctx context.Context) (*models.MetricValue, error) {
	boot, err := c.bootTime(ctx)
	if err != nil {
		return nil, err
	}

	uptime := c.now().Unix() - int64(boot)
	if uptime < 0 {
		uptime = 0
	}

	return &models.MetricValue{
		State: strconv.FormatInt(uptime, 10),
		Attributes: map[string]interface{}{
			"unit_of_measurement": "s",
			"device_class":        "duration",
			"icon":                "mdi:timer-outline",
		},
	}, nil
}

func queryNvidiaSMI(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(
		ctx, "nvidia-smi", "--query-gpu=utilization.gpu", "--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		return "", err
	}

	return string(out), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
