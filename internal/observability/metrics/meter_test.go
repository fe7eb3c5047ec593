// Copyright 2026 The Opendesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeterBuildsCounters(t *testing.T) {
	m, err := New(context.Background(), Config{Enabled: false}, "test")
	require.NoError(t, err)

	m.RecordAuthDenied(context.Background(), "FORBIDDEN")
	m.RecordRateLimited(context.Background(), "api")
}

func TestCreateCounter(t *testing.T) {
	m, err := New(context.Background(), Config{Enabled: false}, "test")
	require.NoError(t, err)

	counter, err := m.CreateCounter("custom_total", "custom events")
	require.NoError(t, err)
	assert.NotNil(t, counter)
}
