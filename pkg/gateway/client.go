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

// Package gateway implements the REST client for the smart-home hub.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hearthd/hearth/pkg/config"
	"github.com/hearthd/hearth/pkg/logger"
	"github.com/hearthd/hearth/pkg/models"
)

const (
	requestTimeout = 10 * time.Second

	// maxResourceBytes caps icon/picture downloads.
	maxResourceBytes = 4 << 20
)

// Client talks to the hub's REST API using bearer-token auth. Every call
// carries a bounded timeout and may fail with *Error.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        logger.Logger
}

// New builds a client from config. ErrNotConfigured is returned when the hub
// URL or token is missing.
func New(cfg *config.Config, log logger.Logger) (*Client, error) {
	if !cfg.Ready() {
		return nil, ErrNotConfigured
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL := cfg.Proxy.URL(); proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.APIToken,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		log: log,
	}, nil
}

// BaseURL returns the hub base address; it scopes remote resource cache keys.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Validate pings the hub to confirm the configuration is usable.
func (c *Client) Validate(ctx context.Context) error {
	return c.getJSON(ctx, "validate", "/api/config", nil)
}

// ListStates returns every entity the hub knows about, sorted by display
// label (case-insensitive).
func (c *Client) ListStates(ctx context.Context) ([]models.EntityState, error) {
	var states []models.EntityState
	if err := c.getJSON(ctx, "list states", "/api/states", &states); err != nil {
		return nil, err
	}

	sort.SliceStable(states, func(i, j int) bool {
		return strings.ToLower(labelOf(states[i])) < strings.ToLower(labelOf(states[j]))
	})

	return states, nil
}

// FetchMetadata returns display metadata for the requested entity IDs.
// Unknown IDs default to the ID itself as label with no icon.
func (c *Client) FetchMetadata(ctx context.Context, ids []string) (map[string]models.EntityMetadata, error) {
	wanted := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if id != "" {
			wanted[id] = struct{}{}
		}
	}

	results := make(map[string]models.EntityMetadata, len(wanted))

	if len(wanted) == 0 {
		return results, nil
	}

	var states []models.EntityState
	if err := c.getJSON(ctx, "fetch metadata", "/api/states", &states); err != nil {
		return nil, err
	}

	for _, state := range states {
		if _, ok := wanted[state.ID]; !ok {
			continue
		}

		results[state.ID] = models.MetadataFromState(state)
	}

	for id := range wanted {
		if _, ok := results[id]; !ok {
			results[id] = models.EntityMetadata{ID: id, Label: id}
		}
	}

	return results, nil
}

// Toggle invokes the toggle service for the entity's domain.
func (c *Client) Toggle(ctx context.Context, entityID string) error {
	path := "/api/services/" + url.PathEscape(models.Domain(entityID)) + "/toggle"
	body := map[string]string{"entity_id": entityID}

	return c.postJSON(ctx, "toggle "+entityID, path, body)
}

// ListNotifications returns the hub's current persistent notifications.
func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var notifications []models.Notification
	if err := c.getJSON(ctx, "list notifications", "/api/persistent_notification", &notifications); err != nil {
		return nil, err
	}

	return notifications, nil
}

// CreateNotification posts a persistent notification, used by the settings
// surface to verify the connection end to end.
func (c *Client) CreateNotification(ctx context.Context, title, message, notificationID string) error {
	body := map[string]string{
		"title":           title,
		"message":         message,
		"notification_id": notificationID,
	}

	return c.postJSON(ctx, "create notification", "/api/services/persistent_notification/create", body)
}

// PushState publishes a locally computed state for a destination entity ID.
func (c *Client) PushState(ctx context.Context, destinationID, value string, attributes map[string]interface{}) error {
	body := map[string]interface{}{
		"state":      value,
		"attributes": attributes,
	}

	return c.postJSON(ctx, "push state "+destinationID, "/api/states/"+url.PathEscape(destinationID), body)
}

// FetchIconBytes downloads the raw bytes for a symbolic icon name.
func (c *Client) FetchIconBytes(ctx context.Context, name string) ([]byte, error) {
	return c.getBytes(ctx, "fetch icon "+name, "/api/icon/"+url.PathEscape(name))
}

// FetchPictureBytes downloads an entity picture; pathOrURL may be absolute or
// relative to the hub base address.
func (c *Client) FetchPictureBytes(ctx context.Context, pathOrURL string) ([]byte, error) {
	target := pathOrURL
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		if !strings.HasPrefix(target, "/") {
			target = "/" + target
		}

		target = c.baseURL + target
	}

	return c.fetchBytes(ctx, "fetch picture", target)
}

func (c *Client) getJSON(ctx context.Context, op, path string, out interface{}) error {
	resp, err := c.do(ctx, op, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	defer c.closeBody(resp)

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}

	return nil
}

func (c *Client) postJSON(ctx context.Context, op, path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("encoding request: %w", err)}
	}

	resp, err := c.do(ctx, op, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	defer c.closeBody(resp)

	return nil
}

func (c *Client) getBytes(ctx context.Context, op, path string) ([]byte, error) {
	return c.fetchBytes(ctx, op, c.baseURL+path)
}

func (c *Client) fetchBytes(ctx context.Context, op, fullURL string) ([]byte, error) {
	resp, err := c.do(ctx, op, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	defer c.closeBody(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceBytes))
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	return data, nil
}

func (c *Client) do(ctx context.Context, op, method, fullURL string, payload []byte) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.closeBody(resp)

		return nil, &Error{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%w: %d", errUnexpectedStatusCode, resp.StatusCode),
		}
	}

	return resp, nil
}

func (c *Client) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to close response body")
	}
}

func labelOf(state models.EntityState) string {
	if name, ok := state.Attributes["friendly_name"].(string); ok && name != "" {
		return name
	}

	return state.ID
}
