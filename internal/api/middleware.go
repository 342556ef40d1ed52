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

package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
)

// userIDKey is the gin context key for the authenticated user's id.
const userIDKey = "auth.user_id"

// RequireAuth rejects requests without a valid bearer token.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.bearerUserID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// OptionalAuth attaches the user id when a valid bearer token is present
// and lets anonymous requests through. A token that is present but invalid
// is still rejected.
func (h *Handler) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		id, err := h.bearerUserID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func (h *Handler) bearerUserID(c *gin.Context) (uint, error) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return 0, apperr.New(apperr.KindUnauthenticated, "authentication", "missing bearer token")
	}
	return h.tokens.Parse(token)
}

// currentUserID returns the authenticated user's id, or nil for anonymous
// requests.
func currentUserID(c *gin.Context) *uint {
	value, exists := c.Get(userIDKey)
	if !exists {
		return nil
	}
	id, ok := value.(uint)
	if !ok {
		return nil
	}
	return &id
}

// abortWithError maps an application error to its HTTP status and a safe
// JSON body. Internal detail stays in the error chain for the logs.
func abortWithError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{
		"error": apperr.MessageOf(err),
		"kind":  string(kind),
	})
}
