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

package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasherRoundtrip(t *testing.T) {
	hasher := NewPasswordHasher(8*1024, 1, 1, 16, 32)

	encoded, err := hasher.Hash("password123")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := hasher.Verify("password123", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("password124", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasherSaltsAreUnique(t *testing.T) {
	hasher := NewPasswordHasher(8*1024, 1, 1, 16, 32)

	first, err := hasher.Hash("password123")
	require.NoError(t, err)
	second, err := hasher.Hash("password123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestPasswordHasherRejectsGarbage(t *testing.T) {
	hasher := NewPasswordHasher(8*1024, 1, 1, 16, 32)

	for _, encoded := range []string{"", "not-a-hash", "$argon2id$broken"} {
		ok, err := hasher.Verify("password123", encoded)
		assert.False(t, ok, "input %q", encoded)
		assert.Error(t, err, "input %q", encoded)
	}
}
