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
	"time"

	"github.com/hearthd/hearth/pkg/icons"
	"github.com/hearthd/hearth/pkg/models"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Gateway is the remote hub contract the engine consumes. Every call may
// fail; a failure aborts only the current run of the job that issued it.
type Gateway interface {
	BaseURL() string
	Validate(ctx context.Context) error
	ListStates(ctx context.Context) ([]models.EntityState, error)
	FetchMetadata(ctx context.Context, ids []string) (map[string]models.EntityMetadata, error)
	Toggle(ctx context.Context, entityID string) error
	ListNotifications(ctx context.Context) ([]models.Notification, error)
	CreateNotification(ctx context.Context, title, message, notificationID string) error
	PushState(ctx context.Context, destinationID, value string, attributes map[string]interface{}) error
	FetchIconBytes(ctx context.Context, name string) ([]byte, error)
	FetchPictureBytes(ctx context.Context, pathOrURL string) ([]byte, error)
}

// Collector supplies raw metric values for the enabled metric keys. Keys
// absent from the result are temporarily unavailable, not errors.
type Collector interface {
	Collect(ctx context.Context, keys []string) map[string]models.MetricValue
}

// EntityView is one row of the assembled view published to the presentation
// layer.
type EntityView struct {
	ID    string
	Label string
	Icon  *icons.Icon
}

// Sink is the presentation boundary the engine publishes into. Calls arrive
// from job goroutines; implementations must be safe for concurrent use.
type Sink interface {
	// OnViewUpdated replaces the displayed entity list. It is invoked on
	// every successful refresh, even when nothing changed.
	OnViewUpdated(entities []EntityView)
	// OnNotification surfaces one net-new notification.
	OnNotification(title, message string)
	// OnStatus reports the outcome of a job run; err is nil when the run
	// succeeded, clearing any previous failure status for that job.
	OnStatus(job string, err error)
}
