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

package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return issuer
}

func TestIssueMintsUniqueTokens(t *testing.T) {
	issuer := newTestIssuer(t)

	// Pin the clock so iat/exp are identical across both calls. The jti
	// claim alone must keep two same-second sessions distinguishable, or
	// replacing a refresh token would leave the prior one live.
	frozen := time.Now()
	issuer.now = func() time.Time { return frozen }

	first, err := issuer.Issue("user-1", "a@example.com", "AGENT", KindRefresh)
	require.NoError(t, err)
	second, err := issuer.Issue("user-1", "a@example.com", "AGENT", KindRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	firstClaims, err := issuer.Verify(first, KindRefresh)
	require.NoError(t, err)
	secondClaims, err := issuer.Verify(second, KindRefresh)
	require.NoError(t, err)
	assert.NotEmpty(t, firstClaims.ID)
	assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
}

func TestNewIssuerRejectsBadSecrets(t *testing.T) {
	_, err := NewIssuer(Config{AccessSecret: "", RefreshSecret: "x"})
	assert.Error(t, err)

	_, err = NewIssuer(Config{AccessSecret: "same", RefreshSecret: "same"})
	assert.Error(t, err)
}

func TestIssueAndVerifyRoundtrip(t *testing.T) {
	issuer := newTestIssuer(t)

	for _, kind := range []Kind{KindAccess, KindRefresh} {
		signed, err := issuer.Issue("user-1", "a@example.com", "AGENT", kind)
		require.NoError(t, err)

		claims, err := issuer.Verify(signed, kind)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "a@example.com", claims.Email)
		assert.Equal(t, "AGENT", claims.Role)
		assert.Equal(t, "user-1", claims.Subject)
		assert.NotNil(t, claims.IssuedAt)
		assert.NotNil(t, claims.ExpiresAt)
	}
}

// The two kinds sign with independent secrets, so a refresh token must
// never verify as an access token or vice versa.
func TestVerifyRejectsCrossKind(t *testing.T) {
	issuer := newTestIssuer(t)

	refresh, err := issuer.Issue("user-1", "a@example.com", "AGENT", KindRefresh)
	require.NoError(t, err)
	_, err = issuer.Verify(refresh, KindAccess)
	assert.ErrorIs(t, err, ErrSignature)

	access, err := issuer.Issue("user-1", "a@example.com", "AGENT", KindAccess)
	require.NoError(t, err)
	_, err = issuer.Verify(access, KindRefresh)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestVerifyExpired(t *testing.T) {
	issuer := newTestIssuer(t)

	signed, err := issuer.Issue("user-1", "a@example.com", "AGENT", KindAccess)
	require.NoError(t, err)

	// Move the verifier's clock past the TTL.
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = issuer.Verify(signed, KindAccess)
	assert.ErrorIs(t, err, ErrExpired)
	assert.NotErrorIs(t, err, ErrSignature)
}

func TestVerifyTampered(t *testing.T) {
	issuer := newTestIssuer(t)

	signed, err := issuer.Issue("user-1", "a@example.com", "AGENT", KindAccess)
	require.NoError(t, err)

	// Flip a character in the payload segment. The signature no longer
	// covers the content, which must not read as expiry.
	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = issuer.Verify(tampered, KindAccess)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := newTestIssuer(t)
	other, err := NewIssuer(Config{
		AccessSecret:  "another-access-secret",
		RefreshSecret: "another-refresh-secret",
	})
	require.NoError(t, err)

	signed, err := other.Issue("user-1", "a@example.com", "AGENT", KindAccess)
	require.NoError(t, err)

	_, err = issuer.Verify(signed, KindAccess)
	assert.ErrorIs(t, err, ErrSignature)
}

func TestVerifyMalformed(t *testing.T) {
	issuer := newTestIssuer(t)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d", "!!!.###.$$$"} {
		_, err := issuer.Verify(raw, KindAccess)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	issuer := newTestIssuer(t)

	signed, err := issuer.Issue("", "a@example.com", "AGENT", KindAccess)
	require.NoError(t, err)

	_, err = issuer.Verify(signed, KindAccess)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestIssueUnknownKind(t *testing.T) {
	issuer := newTestIssuer(t)
	_, err := issuer.Issue("user-1", "a@example.com", "AGENT", Kind("session"))
	assert.Error(t, err)
}
