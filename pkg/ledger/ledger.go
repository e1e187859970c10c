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

// Package ledger tracks what has already been surfaced or published, so
// reconciliation cycles only act on genuinely new or changed data.
package ledger

import (
	"fmt"
	"sort"
	"strings"
)

// NotificationSet holds the identifiers of notifications already surfaced to
// the user in this process lifetime. After each poll its membership equals
// exactly the identifiers present in the latest poll result, so an identifier
// dismissed remotely is treated as new if it reappears.
type NotificationSet struct {
	ids map[string]struct{}
}

// NewNotificationSet returns an empty set.
func NewNotificationSet() *NotificationSet {
	return &NotificationSet{ids: make(map[string]struct{})}
}

// Seed replaces the set with the given identifiers without reporting any of
// them as new. Used once when notification polling is (re)enabled, so
// pre-existing notifications never alert.
func (s *NotificationSet) Seed(ids []string) {
	s.replace(ids)
}

// DiffAndReplace returns the identifiers present in current but absent from
// the set, in current's order, then replaces the set with current.
func (s *NotificationSet) DiffAndReplace(current []string) []string {
	var fresh []string

	for _, id := range current {
		if id == "" {
			continue
		}

		if _, known := s.ids[id]; !known {
			fresh = append(fresh, id)
		}
	}

	s.replace(current)

	return fresh
}

// Has reports membership.
func (s *NotificationSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the current membership count.
func (s *NotificationSet) Len() int {
	return len(s.ids)
}

// Clear empties the set.
func (s *NotificationSet) Clear() {
	s.ids = make(map[string]struct{})
}

func (s *NotificationSet) replace(ids []string) {
	s.ids = make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
}

// PublishLedger remembers the signature most recently pushed per destination
// identifier, so unchanged values are never republished.
type PublishLedger struct {
	last map[string]string
}

// NewPublishLedger returns an empty ledger.
func NewPublishLedger() *PublishLedger {
	return &PublishLedger{last: make(map[string]string)}
}

// Changed reports whether sig differs from the last committed signature for
// the destination. A destination never seen before is always changed.
func (l *PublishLedger) Changed(destination, sig string) bool {
	prev, ok := l.last[destination]
	return !ok || prev != sig
}

// Commit records sig as the last pushed signature for the destination. Only
// call after a successful push; a failed push must leave the ledger untouched
// so the next cycle retries.
func (l *PublishLedger) Commit(destination, sig string) {
	l.last[destination] = sig
}

// Len returns the number of tracked destinations.
func (l *PublishLedger) Len() int {
	return len(l.last)
}

// Reset drops all recorded signatures. Required whenever configuration
// changes, since a changed destination needs a fresh push regardless of the
// prior value.
func (l *PublishLedger) Reset() {
	l.last = make(map[string]string)
}

// Signature derives a canonical string for (value, attributes): the value
// followed by the attribute pairs sorted by key. Two signatures are equal iff
// the values are equal and the sorted pairs match element-wise, independent
// of map iteration order.
func Signature(value string, attributes map[string]interface{}) string {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(value)

	for _, k := range keys {
		b.WriteByte(0x1f)
		b.WriteString(k)
		b.WriteByte('=')
		fmt.Fprintf(&b, "%v", attributes[k])
	}

	return b.String()
}
