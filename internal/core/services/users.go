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

package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/storyzer/storyzer-api/internal/cloud"
	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// UserService manages accounts: registration, login checks, email
// verification, and password reset. Verification and reset links carry two
// parts, a random token stored on the user row and the user id encoded as
// URL-safe base64, so a link alone cannot be forged for another account.
type UserService struct {
	db            *gorm.DB
	mail          MailSender
	verifyBaseURL string
}

func NewUserService(db *gorm.DB, mail MailSender, cfg cloud.Mail) *UserService {
	return &UserService{
		db:            db,
		mail:          mail,
		verifyBaseURL: strings.TrimRight(cfg.VerifyBaseURL, "/"),
	}
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates a new, unverified account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	const stage = "registration"

	if strings.TrimSpace(input.Username) == "" {
		return nil, apperr.New(apperr.KindValidation, stage, "username is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, apperr.New(apperr.KindValidation, stage, "email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperr.New(apperr.KindValidation, stage, "password must be at least 8 characters")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", input.Username, input.Email).
		Count(&count).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, stage, err, "failed to check for an existing account")
	}
	if count > 0 {
		return nil, apperr.New(apperr.KindValidation, stage, "an account with that username or email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInconsistency, stage, err, "failed to hash password")
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         "user",
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, stage, err, "failed to create the account")
	}
	return user, nil
}

// GetByID loads a user.
func (s *UserService) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "user lookup", "user %d not found", id)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "user lookup", err, "failed to load the user")
	}
	return &user, nil
}

// Authenticate checks credentials and records the login time. The same
// error is returned for an unknown username and a wrong password.
func (s *UserService) Authenticate(ctx context.Context, username string, password string) (*model.User, error) {
	const stage = "login"

	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindUnauthenticated, stage, "invalid username or password")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, stage, err, "failed to load the account")
	}
	if !user.IsActive {
		return nil, apperr.New(apperr.KindUnauthenticated, stage, "account is disabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.New(apperr.KindUnauthenticated, stage, "invalid username or password")
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, stage, err, "failed to record the login")
	}
	return &user, nil
}

// SendVerification issues a fresh verification token for the account and
// mails a confirmation link.
func (s *UserService) SendVerification(ctx context.Context, email string) error {
	const stage = "email verification"

	user, err := s.getByEmail(ctx, stage, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return apperr.New(apperr.KindValidation, stage, "account is already verified")
	}

	token := uuid.NewString()
	if err := s.db.WithContext(ctx).Model(user).Update("verify_token", token).Error; err != nil {
		return apperr.Wrap(apperr.KindPersistence, stage, err, "failed to store the verification token")
	}

	link := fmt.Sprintf("%s/email/verify/%s/%s/", s.verifyBaseURL, token, encodeUserID(user.ID))
	body := fmt.Sprintf("Hello %s,\n\nConfirm your email address by opening this link:\n\n%s\n", user.Username, link)
	if err := s.mail.Send(user.Email, "Verify your email address", body); err != nil {
		return apperr.Wrap(apperr.KindUpstream, stage, err, "failed to send the verification mail")
	}
	return nil
}

// ConfirmVerification marks the account verified when the token and
// encoded id from the link match.
func (s *UserService) ConfirmVerification(ctx context.Context, token string, encodedID string) error {
	const stage = "email verification"

	user, err := s.userFromLink(ctx, stage, encodedID)
	if err != nil {
		return err
	}
	if user.VerifyToken == "" || user.VerifyToken != token {
		return apperr.New(apperr.KindValidation, stage, "invalid or expired verification link")
	}

	updates := map[string]interface{}{"is_verified": true, "verify_token": ""}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return apperr.Wrap(apperr.KindPersistence, stage, err, "failed to mark the account verified")
	}
	return nil
}

// SendPasswordReset issues a reset token and mails the reset link.
func (s *UserService) SendPasswordReset(ctx context.Context, email string) error {
	const stage = "password reset"

	user, err := s.getByEmail(ctx, stage, email)
	if err != nil {
		return err
	}

	token := uuid.NewString()
	if err := s.db.WithContext(ctx).Model(user).Update("reset_token", token).Error; err != nil {
		return apperr.Wrap(apperr.KindPersistence, stage, err, "failed to store the reset token")
	}

	link := fmt.Sprintf("%s/password/reset/confirm/%s/%s/", s.verifyBaseURL, encodeUserID(user.ID), token)
	body := fmt.Sprintf("Hello %s,\n\nReset your password by opening this link:\n\n%s\n", user.Username, link)
	if err := s.mail.Send(user.Email, "Password reset", body); err != nil {
		return apperr.Wrap(apperr.KindUpstream, stage, err, "failed to send the reset mail")
	}
	return nil
}

// ConfirmPasswordReset sets a new password when the reset link is valid.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, encodedID string, token string, newPassword string) error {
	const stage = "password reset"

	if len(newPassword) < 8 {
		return apperr.New(apperr.KindValidation, stage, "password must be at least 8 characters")
	}

	user, err := s.userFromLink(ctx, stage, encodedID)
	if err != nil {
		return err
	}
	if user.ResetToken == "" || user.ResetToken != token {
		return apperr.New(apperr.KindValidation, stage, "invalid or expired reset link")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInconsistency, stage, err, "failed to hash password")
	}

	updates := map[string]interface{}{"password_hash": string(hash), "reset_token": ""}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return apperr.Wrap(apperr.KindPersistence, stage, err, "failed to update the password")
	}
	return nil
}

func (s *UserService) getByEmail(ctx context.Context, stage string, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, stage, "no account found for that email address")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, stage, err, "failed to load the account")
	}
	return &user, nil
}

func (s *UserService) userFromLink(ctx context.Context, stage string, encodedID string) (*model.User, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, stage, "malformed link")
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, stage, "malformed link")
	}
	return s.GetByID(ctx, uint(id))
}

// encodeUserID renders a user id as URL-safe base64 for use in mail links.
func encodeUserID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}
