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

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationSet_DiffAndReplace(t *testing.T) {
	set := NewNotificationSet()
	set.Seed([]string{"a", "b"})

	fresh := set.DiffAndReplace([]string{"b", "c", "d"})

	assert.Equal(t, []string{"c", "d"}, fresh, "new ids must equal N2 \\ N1")

	// After the poll the set equals exactly the latest result.
	assert.True(t, set.Has("b"))
	assert.True(t, set.Has("c"))
	assert.True(t, set.Has("d"))
	assert.False(t, set.Has("a"), "dismissed id must be pruned")
	assert.Equal(t, 3, set.Len())
}

func TestNotificationSet_PruneAndReappear(t *testing.T) {
	set := NewNotificationSet()

	// Run 1: n1 appears for the first time.
	fresh := set.DiffAndReplace([]string{"n1"})
	require.Equal(t, []string{"n1"}, fresh)

	// Run 2: n1 dismissed remotely.
	fresh = set.DiffAndReplace(nil)
	assert.Empty(t, fresh)
	assert.Equal(t, 0, set.Len())

	// Run 3: n1 reappears and must be treated as new again.
	fresh = set.DiffAndReplace([]string{"n1"})
	assert.Equal(t, []string{"n1"}, fresh)
}

func TestNotificationSet_SeedDoesNotSurface(t *testing.T) {
	set := NewNotificationSet()
	set.Seed([]string{"pre1", "pre2"})

	fresh := set.DiffAndReplace([]string{"pre1", "pre2"})
	assert.Empty(t, fresh, "seeded notifications must never alert")
}

func TestNotificationSet_IgnoresEmptyIDs(t *testing.T) {
	set := NewNotificationSet()

	fresh := set.DiffAndReplace([]string{"", "x"})
	assert.Equal(t, []string{"x"}, fresh)
	assert.Equal(t, 1, set.Len())
}

func TestNotificationSet_Clear(t *testing.T) {
	set := NewNotificationSet()
	set.Seed([]string{"a"})
	set.Clear()

	assert.Equal(t, 0, set.Len())

	fresh := set.DiffAndReplace([]string{"a"})
	assert.Equal(t, []string{"a"}, fresh, "cleared set starts from a clean slate")
}

func TestSignature_IndependentOfMapOrder(t *testing.T) {
	a := Signature("42", map[string]interface{}{
		"unit_of_measurement": "%",
		"icon":                "mdi:memory",
		"total_gb":            15.5,
	})
	b := Signature("42", map[string]interface{}{
		"total_gb":            15.5,
		"icon":                "mdi:memory",
		"unit_of_measurement": "%",
	})

	assert.Equal(t, a, b)
}

func TestSignature_Distinguishes(t *testing.T) {
	base := Signature("42", map[string]interface{}{"unit": "%"})

	assert.NotEqual(t, base, Signature("43", map[string]interface{}{"unit": "%"}))
	assert.NotEqual(t, base, Signature("42", map[string]interface{}{"unit": "GB"}))
	assert.NotEqual(t, base, Signature("42", nil))
}

func TestPublishLedger_DedupAndRetry(t *testing.T) {
	l := NewPublishLedger()

	sig := Signature("10", map[string]interface{}{"unit": "s"})

	assert.True(t, l.Changed("sensor.agent_uptime", sig), "unseen destination is always changed")

	l.Commit("sensor.agent_uptime", sig)
	assert.False(t, l.Changed("sensor.agent_uptime", sig), "committed value must not republish")

	next := Signature("11", map[string]interface{}{"unit": "s"})
	assert.True(t, l.Changed("sensor.agent_uptime", next))
}

func TestPublishLedger_Reset(t *testing.T) {
	l := NewPublishLedger()
	sig := Signature("1", nil)

	l.Commit("sensor.x", sig)
	require.False(t, l.Changed("sensor.x", sig))

	l.Reset()

	assert.True(t, l.Changed("sensor.x", sig), "reset must force a fresh push")
	assert.Equal(t, 0, l.Len())
}
