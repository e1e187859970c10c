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

// Package config manages the persisted hearthd configuration file.
package config

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/hearthd/hearth/pkg/logger"
)

const (
	defaultRefreshMinutes = 5
	minRefreshMinutes     = 1
	maxRefreshMinutes     = 1440
)

// Config represents the persisted hearthd configuration.
type Config struct {
	BaseURL              string         `json:"base_url"`
	APIToken             string         `json:"api_token"`
	Entities             []string       `json:"entities"`
	RefreshMinutes       int            `json:"refresh_minutes"`
	NotificationsEnabled bool           `json:"receive_notifications"`
	AgentEnabled         bool           `json:"agent_enabled"`
	AgentName            string         `json:"agent_name"`
	AgentMetrics         []string       `json:"agent_metrics"`
	TrayIconTheme        string         `json:"tray_icon_theme"`
	Proxy                Proxy          `json:"proxy"`
	Logging              *logger.Config `json:"logging,omitempty"`
}

// Proxy holds optional outbound proxy settings. Credentials are stored
// base64-obfuscated in the config file, not encrypted.
type Proxy struct {
	Host     string
	Port     string
	Username string
	Password string
}

type proxyJSON struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (p Proxy) MarshalJSON() ([]byte, error) {
	return json.Marshal(proxyJSON{
		Host:     encodeValue(p.Host),
		Port:     encodeValue(p.Port),
		Username: encodeValue(p.Username),
		Password: encodeValue(p.Password),
	})
}

func (p *Proxy) UnmarshalJSON(data []byte) error {
	var raw proxyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Host = decodeValue(raw.Host)
	p.Port = decodeValue(raw.Port)
	p.Username = decodeValue(raw.Username)
	p.Password = decodeValue(raw.Password)

	return nil
}

// URL builds the proxy URL, or nil when no proxy host is configured.
func (p Proxy) URL() *url.URL {
	host := strings.TrimSpace(p.Host)
	if host == "" {
		return nil
	}

	endpoint := host
	if port := strings.TrimSpace(p.Port); port != "" {
		endpoint = endpoint + ":" + port
	}

	u := &url.URL{Scheme: "http", Host: endpoint}

	if user := strings.TrimSpace(p.Username); user != "" {
		if pass := strings.TrimSpace(p.Password); pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}

	return u
}

// Validate implements the config.Validator interface: it normalizes fields
// and applies defaults. Missing hub credentials are not an error here; they
// disable the remote jobs until corrected.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.APIToken = strings.TrimSpace(c.APIToken)
	c.AgentName = strings.TrimSpace(c.AgentName)

	if c.RefreshMinutes == 0 {
		c.RefreshMinutes = defaultRefreshMinutes
	}

	if c.RefreshMinutes < minRefreshMinutes {
		c.RefreshMinutes = minRefreshMinutes
	}

	if c.RefreshMinutes > maxRefreshMinutes {
		c.RefreshMinutes = maxRefreshMinutes
	}

	switch c.TrayIconTheme {
	case "light", "dark":
	default:
		c.TrayIconTheme = "auto"
	}

	c.Entities = dedupe(c.Entities)
	c.AgentMetrics = dedupe(c.AgentMetrics)

	return nil
}

// Ready reports whether the hub connection is configured at all.
func (c *Config) Ready() bool {
	return c.BaseURL != "" && c.APIToken != ""
}

// dedupe removes duplicates while preserving first-seen order.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}

func encodeValue(value string) string {
	if value == "" {
		return ""
	}

	return base64.StdEncoding.EncodeToString([]byte(value))
}

func decodeValue(value string) string {
	if value == "" {
		return ""
	}

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return ""
	}

	return string(decoded)
}
