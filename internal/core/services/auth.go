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
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storyzer/storyzer-api/internal/cloud"
	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// TokenService issues and verifies the HMAC-signed access tokens used by
// the API. The token subject is the user id.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(cfg cloud.Auth) *TokenService {
	ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	return &TokenService{secret: []byte(cfg.Secret), ttl: ttl}
}

// Issue creates a signed token for the user.
func (t *TokenService) Issue(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInconsistency, "token issue", err, "failed to sign access token")
	}
	return signed, nil
}

// Parse verifies a token and returns the user id it was issued to.
func (t *TokenService) Parse(tokenString string) (uint, error) {
	const stage = "token verification"

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnauthenticated, stage, err, "invalid or expired token")
	}
	if !token.Valid {
		return 0, apperr.New(apperr.KindUnauthenticated, stage, "invalid token")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.KindUnauthenticated, stage, "token subject is not a user id")
	}
	return uint(id), nil
}
