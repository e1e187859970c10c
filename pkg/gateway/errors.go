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

package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates the hub URL or token is missing; remote
	// jobs stay disabled until configuration is corrected.
	ErrNotConfigured = errors.New("hub URL or token is not configured")

	errUnexpectedStatusCode = errors.New("unexpected status code")
)

// Error is the failure type for any remote hub call: connection errors,
// timeouts, and non-2xx responses all surface as *Error.
type Error struct {
	Op     string // operation name, e.g. "list states"
	Status int    // HTTP status, 0 for transport failures
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway: %s failed: %v (status %d)", e.Op, e.Err, e.Status)
	}

	return fmt.Sprintf("gateway: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
