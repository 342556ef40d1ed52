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
	"context"
	"encoding/base64"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storyzer/storyzer-api/internal/cloud"
	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/model"
	"github.com/storyzer/storyzer-api/internal/core/services"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

// mailRecorder captures outbound mail instead of sending it.
type mailRecorder struct {
	sent []sentMail
}

func (m *mailRecorder) Send(to string, subject string, body string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newUserService(t *testing.T) (*services.UserService, *mailRecorder, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	mail := &mailRecorder{}
	svc := services.NewUserService(db, mail, cloud.Mail{VerifyBaseURL: "http://localhost:8081"})
	return svc, mail, db
}

func registerInput() services.RegisterInput {
	return services.RegisterInput{
		Username:  "mira",
		Email:     "mira@example.com",
		Password:  "correct-horse",
		FirstName: "Mira",
		LastName:  "Tan",
	}
}

func encodeID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _, _ := newUserService(t)

	user, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.False(t, user.IsVerified)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	authed, err := svc.Authenticate(context.Background(), "mira", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
	assert.NotNil(t, authed.LastLogin)

	_, err = svc.Authenticate(context.Background(), "mira", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	_, err = svc.Authenticate(context.Background(), "nobody", "correct-horse")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestRegisterRejectsDuplicatesAndShortPasswords(t *testing.T) {
	svc, _, _ := newUserService(t)

	_, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)

	duplicate := registerInput()
	duplicate.Email = "other@example.com"
	_, err = svc.Register(context.Background(), duplicate)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	short := registerInput()
	short.Username = "other"
	short.Email = "short@example.com"
	short.Password = "short"
	_, err = svc.Register(context.Background(), short)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestEmailVerificationRoundTrip(t *testing.T) {
	svc, mail, db := newUserService(t)

	user, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)

	require.NoError(t, svc.SendVerification(context.Background(), user.Email))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, user.Email, mail.sent[0].to)
	assert.Contains(t, mail.sent[0].body, "/email/verify/")

	var stored model.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.NotEmpty(t, stored.VerifyToken)

	// A wrong token does not verify.
	err = svc.ConfirmVerification(context.Background(), "bogus", encodeID(user.ID))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, svc.ConfirmVerification(context.Background(), stored.VerifyToken, encodeID(user.ID)))

	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, stored.IsVerified)
	assert.Empty(t, stored.VerifyToken)

	// Already verified accounts are rejected.
	err = svc.SendVerification(context.Background(), user.Email)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPasswordResetRoundTrip(t *testing.T) {
	svc, mail, db := newUserService(t)

	user, err := svc.Register(context.Background(), registerInput())
	require.NoError(t, err)

	require.NoError(t, svc.SendPasswordReset(context.Background(), user.Email))
	require.Len(t, mail.sent, 1)

	var stored model.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.NotEmpty(t, stored.ResetToken)

	err = svc.ConfirmPasswordReset(context.Background(), encodeID(user.ID), stored.ResetToken, "a-new-password")
	require.NoError(t, err)

	// The old password no longer works, the new one does, and the token
	// cannot be replayed.
	_, err = svc.Authenticate(context.Background(), "mira", "correct-horse")
	require.Error(t, err)
	_, err = svc.Authenticate(context.Background(), "mira", "a-new-password")
	require.NoError(t, err)
	err = svc.ConfirmPasswordReset(context.Background(), encodeID(user.ID), stored.ResetToken, "another-password")
	require.Error(t, err)
}

func TestVerificationForUnknownEmail(t *testing.T) {
	svc, _, _ := newUserService(t)

	err := svc.SendVerification(context.Background(), "ghost@example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
