// Copyright 2024 Storyzer, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyzer/storyzer-api/internal/cloud"
	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/model"
	"github.com/storyzer/storyzer-api/internal/core/services"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := services.NewTokenService(cloud.Auth{Secret: "unit-test-secret", TokenTTLMinutes: 5})

	signed, err := tokens.Issue(&model.User{ID: 42})
	require.NoError(t, err)

	id, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestTokenFromAnotherSecretIsRejected(t *testing.T) {
	issuer := services.NewTokenService(cloud.Auth{Secret: "secret-a", TokenTTLMinutes: 5})
	verifier := services.NewTokenService(cloud.Auth{Secret: "secret-b", TokenTTLMinutes: 5})

	signed, err := issuer.Issue(&model.User{ID: 1})
	require.NoError(t, err)

	_, err = verifier.Parse(signed)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestGarbageTokenIsRejected(t *testing.T) {
	tokens := services.NewTokenService(cloud.Auth{Secret: "unit-test-secret", TokenTTLMinutes: 5})

	_, err := tokens.Parse("not.a.token")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}
