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

package reconciler

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hearthd/hearth/pkg/agentmetrics"
	"github.com/hearthd/hearth/pkg/ledger"
)

const defaultNotificationTitle = "Home Hub"

// job is one periodic reconciliation cycle. A job never starts a new run
// while its previous run is in flight: the worker goroutine executes runs
// synchronously, and ticks that elapse mid-run are dropped.
type job struct {
	name     string
	interval func() time.Duration
	enabled  func() bool
	run      func(ctx context.Context) error
	kickCh   chan struct{}
	reloadCh chan time.Duration
}

func newJob(name string, interval func() time.Duration, enabled func() bool, run func(ctx context.Context) error) *job {
	return &job{
		name:     name,
		interval: interval,
		enabled:  enabled,
		run:      run,
		kickCh:   make(chan struct{}, 1),
		reloadCh: make(chan time.Duration, 1),
	}
}

func fixedInterval(d time.Duration) func() time.Duration {
	return func() time.Duration { return d }
}

// kick requests one out-of-band run, dropping the request if one is already
// pending.
func (j *job) kick() {
	select {
	case j.kickCh <- struct{}{}:
	default:
	}
}

// reload requests a timer restart with a new period, draining any stale
// pending reload first.
func (j *job) reload(d time.Duration) {
	select {
	case <-j.reloadCh:
	default:
	}

	select {
	case j.reloadCh <- d:
	default:
	}
}

func (r *Reconciler) runJob(ctx context.Context, j *job) {
	ticker := r.clock.Ticker(j.interval())
	defer func() {
		ticker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case d := <-j.reloadCh:
			ticker.Stop()
			ticker = r.clock.Ticker(d)

			r.log.Info().Str("job", j.name).Dur("interval", d).Msg("Job interval reloaded")
		case <-j.kickCh:
			r.execute(ctx, j, ticker)
		case <-ticker.Chan():
			r.execute(ctx, j, ticker)
		}
	}
}

func (r *Reconciler) execute(ctx context.Context, j *job, ticker Ticker) {
	if !j.enabled() {
		return
	}

	runID := uuid.New().String()
	start := r.clock.Now()

	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	err := j.run(runCtx)

	cancel()

	if err != nil {
		r.log.Warn().
			Err(err).
			Str("job", j.name).
			Str("run_id", runID).
			Msg("Reconciliation run failed")
	} else {
		r.log.Debug().
			Str("job", j.name).
			Str("run_id", runID).
			Dur("elapsed", r.clock.Now().Sub(start)).
			Msg("Reconciliation run completed")
	}

	r.sink.OnStatus(j.name, err)

	// Ticks that elapsed while this run was in flight are discarded rather
	// than queued, so a slow hub cannot pile up back-to-back runs.
	select {
	case <-ticker.Chan():
	default:
	}
}

// runEntityRefresh fetches metadata for the configured entities, resolves
// their icons and republishes the assembled view. The view is republished
// even when identical to the previous one; only notify and publish paths are
// deduplicated.
func (r *Reconciler) runEntityRefresh(ctx context.Context) error {
	cfg, gw, resolver, version := r.snapshot()
	if gw == nil {
		return nil
	}

	metadata, err := gw.FetchMetadata(ctx, cfg.Entities)
	if err != nil {
		// Previous published view stays as-is; caches are untouched.
		return err
	}

	views := make([]EntityView, 0, len(cfg.Entities))

	for _, id := range cfg.Entities {
		meta := metadata[id]
		views = append(views, EntityView{
			ID:    id,
			Label: meta.Label,
			Icon:  resolver.Resolve(ctx, meta),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		return strings.ToLower(views[i].Label) < strings.ToLower(views[j].Label)
	})

	if !r.stillCurrent(version) {
		return nil
	}

	r.sink.OnViewUpdated(views)

	return nil
}

// runNotificationPoll diffs the hub's notification list against the known
// set and surfaces only net-new identifiers. The first successful poll after
// (re)enabling seeds the set without surfacing anything, so pre-existing
// notifications never alert.
func (r *Reconciler) runNotificationPoll(ctx context.Context) error {
	_, gw, _, version := r.snapshot()
	if gw == nil {
		return nil
	}

	notifications, err := gw.ListNotifications(ctx)
	if err != nil {
		// The known set stays exactly as it was before the failed poll.
		return err
	}

	ids := make([]string, 0, len(notifications))
	byID := make(map[string]int, len(notifications))

	for i, n := range notifications {
		id := strings.TrimSpace(n.ID)
		if id == "" {
			continue
		}

		ids = append(ids, id)
		byID[id] = i
	}

	r.mu.Lock()

	if version != r.version {
		r.mu.Unlock()
		return nil
	}

	if !r.notifSeeded {
		r.notifications.Seed(ids)
		r.notifSeeded = true
		r.mu.Unlock()

		return nil
	}

	fresh := r.notifications.DiffAndReplace(ids)

	r.mu.Unlock()

	for _, id := range fresh {
		n := notifications[byID[id]]

		title := n.Title
		if title == "" {
			title = defaultNotificationTitle
		}

		r.sink.OnNotification(title, n.Message)
	}

	return nil
}

// runMetricPublish collects the enabled metrics and pushes only the values
// whose signature differs from the last successful push. A failed push
// aborts the run and leaves the ledger untouched, so the next cycle retries.
func (r *Reconciler) runMetricPublish(ctx context.Context) error {
	cfg, gw, _, version := r.snapshot()
	if gw == nil {
		return nil
	}

	values := r.collector.Collect(ctx, cfg.AgentMetrics)

	for _, key := range cfg.AgentMetrics {
		value, ok := values[key]
		if !ok {
			// Temporarily unavailable; the ledger entry is preserved.
			continue
		}

		destination := agentmetrics.DestinationID(cfg.AgentName, key)
		sig := ledger.Signature(value.State, value.Attributes)

		r.mu.Lock()

		if version != r.version {
			r.mu.Unlock()
			return nil
		}

		changed := r.published.Changed(destination, sig)

		r.mu.Unlock()

		if !changed {
			continue
		}

		if err := gw.PushState(ctx, destination, value.State, value.Attributes); err != nil {
			return err
		}

		r.mu.Lock()

		if version == r.version {
			r.published.Commit(destination, sig)
		}

		r.mu.Unlock()

		r.log.Debug().
			Str("destination", destination).
			Str("state", value.State).
			Msg("Published metric")
	}

	return nil
}
