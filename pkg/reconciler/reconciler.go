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

// Package reconciler runs the periodic jobs that keep the local view of the
// hub fresh while suppressing redundant alerts and writes.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/hearthd/hearth/pkg/config"
	"github.com/hearthd/hearth/pkg/gateway"
	"github.com/hearthd/hearth/pkg/icons"
	"github.com/hearthd/hearth/pkg/ledger"
	"github.com/hearthd/hearth/pkg/logger"
	"github.com/hearthd/hearth/pkg/models"
)

const (
	notificationPollInterval = 30 * time.Second
	metricPublishInterval    = time.Minute

	// runTimeout bounds one job run; individual gateway calls carry their
	// own 10s timeout underneath it.
	runTimeout = 30 * time.Second
)

// Job names, surfaced through Sink.OnStatus and JobStatus.
const (
	JobEntityRefresh    = "entities"
	JobNotificationPoll = "notifications"
	JobMetricPublish    = "metrics"
)

const testNotificationID = "hearth_widget_test"

// GatewayFactory builds a hub client for a configuration. It returns
// gateway.ErrNotConfigured when the hub URL or token is missing.
type GatewayFactory func(cfg *config.Config, log logger.Logger) (Gateway, error)

// Reconciler owns the four shared cache structures and the three periodic
// jobs that mutate them. Each job runs on its own goroutine but a run's
// writes are committed only if the configuration version it started under is
// still current, so reconfiguration can never race a stale run's results
// into fresh caches.
type Reconciler struct {
	mu            sync.Mutex
	cfg           *config.Config
	version       uint64
	gw            Gateway
	resolver      *icons.Resolver
	notifications *ledger.NotificationSet
	published     *ledger.PublishLedger
	notifSeeded   bool

	collector  Collector
	sink       Sink
	newGateway GatewayFactory
	clock      Clock
	log        logger.Logger

	jobs      []*job
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a reconciler for the given configuration. A nil clock defaults
// to the real clock.
func New(cfg *config.Config, sink Sink, collector Collector, clock Clock, log logger.Logger) *Reconciler {
	if clock == nil {
		clock = realClock{}
	}

	r := &Reconciler{
		collector:     collector,
		sink:          sink,
		newGateway:    defaultGatewayFactory,
		clock:         clock,
		log:           log,
		notifications: ledger.NewNotificationSet(),
		published:     ledger.NewPublishLedger(),
		done:          make(chan struct{}),
	}

	r.jobs = []*job{
		newJob(JobEntityRefresh, r.entityInterval, r.entityEnabled, r.runEntityRefresh),
		newJob(JobNotificationPoll, fixedInterval(notificationPollInterval), r.notificationsEnabled, r.runNotificationPoll),
		newJob(JobMetricPublish, fixedInterval(metricPublishInterval), r.metricsEnabled, r.runMetricPublish),
	}

	r.applyConfig(cfg)

	return r
}

func defaultGatewayFactory(cfg *config.Config, log logger.Logger) (Gateway, error) {
	gw, err := gateway.New(cfg, log)
	if err != nil {
		return nil, err
	}

	return gw, nil
}

// Start launches the job workers and fires one out-of-band run of each
// enabled job so the published view reflects the configuration immediately.
func (r *Reconciler) Start(ctx context.Context) error {
	r.log.Info().
		Int("jobs", len(r.jobs)).
		Msg("Starting reconciler")

	for _, j := range r.jobs {
		r.wg.Add(1)

		go func(j *job) {
			defer r.wg.Done()
			r.runJob(ctx, j)
		}(j)
	}

	r.kickAll()

	return nil
}

// Stop terminates the job workers and waits for in-flight runs to finish.
func (r *Reconciler) Stop(_ context.Context) error {
	r.closeOnce.Do(func() {
		close(r.done)
	})

	r.wg.Wait()

	r.log.Info().Msg("Reconciler stopped")

	return nil
}

// UpdateConfig applies a configuration change atomically: the resource cache
// and publish ledger are replaced, the known-notification set is reset and
// reseeded, interval timers restart with the new periods, and every enabled
// job gets one immediate out-of-band run.
func (r *Reconciler) UpdateConfig(_ context.Context, cfg *config.Config) error {
	if cfg == nil {
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	r.applyConfig(cfg)
	r.reloadIntervals()
	r.kickAll()

	return nil
}

// applyConfig swaps in a new configuration under the lock, bumping the
// version so runs started under the old one discard their writes. The cache
// structures are replaced wholesale rather than cleared in place, so a stale
// run still holding the old objects mutates garbage.
func (r *Reconciler) applyConfig(cfg *config.Config) {
	gw, err := r.newGateway(cfg, r.log)
	if err != nil {
		gw = nil
	}

	var fetcher icons.Fetcher
	if gw != nil {
		fetcher = gw
	}

	r.mu.Lock()
	r.cfg = cfg
	r.version++
	r.gw = gw
	r.resolver = icons.NewResolver(fetcher, r.log)
	r.notifications = ledger.NewNotificationSet()
	r.published = ledger.NewPublishLedger()
	r.notifSeeded = false
	r.mu.Unlock()

	if cfg.Logging != nil {
		r.log.SetDebug(cfg.Logging.Debug)
	}

	if err != nil {
		r.log.Warn().Err(err).Msg("Hub connection not configured, remote jobs disabled")
		r.sink.OnStatus(JobEntityRefresh, err)
	}
}

// Toggle forwards a user-initiated toggle to the hub.
func (r *Reconciler) Toggle(ctx context.Context, entityID string) error {
	gw := r.currentGateway()
	if gw == nil {
		return gateway.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if err := gw.Toggle(ctx, entityID); err != nil {
		r.log.Warn().Err(err).Str("entity_id", entityID).Msg("Toggle failed")
		return err
	}

	r.log.Info().Str("entity_id", entityID).Msg("Toggled entity")

	return nil
}

// ListAvailable returns every entity known to the hub, for the settings
// surface to browse.
func (r *Reconciler) ListAvailable(ctx context.Context) ([]models.EntityState, error) {
	gw := r.currentGateway()
	if gw == nil {
		return nil, gateway.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	return gw.ListStates(ctx)
}

// CheckConnection pings the hub with the current credentials.
func (r *Reconciler) CheckConnection(ctx context.Context) error {
	gw := r.currentGateway()
	if gw == nil {
		return gateway.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	return gw.Validate(ctx)
}

// SendTestNotification posts a persistent notification to the hub so the
// user can verify the connection end to end.
func (r *Reconciler) SendTestNotification(ctx context.Context) error {
	gw := r.currentGateway()
	if gw == nil {
		return gateway.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	return gw.CreateNotification(ctx, "Hearth", "Test notification from the hearth agent.", testNotificationID)
}

// JobStatus reports which jobs are currently enabled.
func (r *Reconciler) JobStatus() map[string]bool {
	status := make(map[string]bool, len(r.jobs))

	for _, j := range r.jobs {
		status[j.name] = j.enabled()
	}

	return status
}

func (r *Reconciler) currentGateway() Gateway {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.gw
}

// snapshot captures the state a run operates on, stamped with the active
// configuration version.
func (r *Reconciler) snapshot() (*config.Config, Gateway, *icons.Resolver, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cfg, r.gw, r.resolver, r.version
}

func (r *Reconciler) stillCurrent(version uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return version == r.version
}

func (r *Reconciler) entityEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.gw != nil
}

func (r *Reconciler) notificationsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.gw != nil && r.cfg.NotificationsEnabled
}

func (r *Reconciler) metricsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.gw != nil && r.cfg.AgentEnabled && r.cfg.AgentName != ""
}

func (r *Reconciler) entityInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return time.Duration(r.cfg.RefreshMinutes) * time.Minute
}

func (r *Reconciler) kickAll() {
	for _, j := range r.jobs {
		j.kick()
	}
}

func (r *Reconciler) reloadIntervals() {
	for _, j := range r.jobs {
		j.reload(j.interval())
	}
}
