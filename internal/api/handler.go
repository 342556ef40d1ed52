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

// Package api exposes the HTTP surface of the service: the prediction
// pipeline, result listing, accounts and authentication, and the raw chat
// utilities.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/commands"
	"github.com/storyzer/storyzer-api/internal/core/model"
	"github.com/storyzer/storyzer-api/internal/core/services"
	"github.com/storyzer/storyzer-api/internal/core/workflow"
)

// Handler carries the services behind the HTTP routes.
type Handler struct {
	prediction *workflow.PredictionWorkflow
	results    *services.ResultService
	users      *services.UserService
	tokens     *services.TokenService
	translator commands.TextCompleter
	chat       commands.TextCompleter
}

func NewHandler(
	prediction *workflow.PredictionWorkflow,
	results *services.ResultService,
	users *services.UserService,
	tokens *services.TokenService,
	translator commands.TextCompleter,
	chat commands.TextCompleter,
) *Handler {
	return &Handler{
		prediction: prediction,
		results:    results,
		users:      users,
		tokens:     tokens,
		translator: translator,
		chat:       chat,
	}
}

// RegisterRoutes attaches all routes to the engine.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/movie/prediction", h.OptionalAuth(), h.PredictMovie)
	router.GET("/result/list", h.RequireAuth(), h.ListResults)

	router.POST("/users/", h.RegisterUser)
	router.GET("/users/detail", h.RequireAuth(), h.UserDetail)
	router.POST("/auth/login", h.Login)

	router.POST("/email/verify/", h.SendEmailVerification)
	router.GET("/email/verify/:token/:uid/", h.ConfirmEmailVerification)
	router.POST("/password/reset/", h.SendPasswordReset)
	router.POST("/password/reset/confirm/", h.ConfirmPasswordReset)

	router.POST("/chatgpt/translate/", h.Translate)
	router.POST("/chatgpt/", h.Chat)
}

// PredictMovie runs one concept through the full prediction pipeline.
func (h *Handler) PredictMovie(c *gin.Context) {
	var request model.PredictionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindValidation, "request decoding", err, "request body is not valid JSON"))
		return
	}

	response, err := h.prediction.Run(c.Request.Context(), currentUserID(c), &request)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// ListResults returns one page of stored analyses. Query parameters:
// page (default 1), category (optional equality filter) and user_id
// (optional, defaults to the authenticated caller). A non-numeric page
// falls back to the first page.
func (h *Handler) ListResults(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}

	owner := currentUserID(c)
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			abortWithError(c, apperr.New(apperr.KindValidation, "result listing", "user_id must be a positive integer"))
			return
		}
		parsed := uint(id)
		owner = &parsed
	}

	listing, err := h.results.List(c.Request.Context(), services.ResultFilter{
		UserID:   owner,
		Category: c.Query("category"),
		Page:     page,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// RegisterUser creates a new account.
func (h *Handler) RegisterUser(c *gin.Context) {
	var input services.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindValidation, "request decoding", err, "request body is not valid JSON"))
		return
	}

	user, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// UserDetail returns the authenticated user's account.
func (h *Handler) UserDetail(c *gin.Context) {
	id := currentUserID(c)
	if id == nil {
		abortWithError(c, apperr.New(apperr.KindUnauthenticated, "authentication", "missing bearer token"))
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), *id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials and returns a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var input loginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindValidation, "request decoding", err, "request body is not valid JSON"))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	token, err := h.tokens.Issue(user)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type emailRequest struct {
	Email string `json:"email"`
}

// SendEmailVerification mails a fresh verification link.
func (h *Handler) SendEmailVerification(c *gin.Context) {
	var input emailRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindValidation, "request decoding", err, "request body is not valid JSON"))
		return
	}

	if err := h.users.SendVerification(c.Request.Context(), input.Email); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verification mail sent"})
}

// ConfirmEmailVerification completes verification from the mailed link.
func (h *Handler) ConfirmEmailVerification(c *gin.Context) {
	err := h.users.ConfirmVerification(c.Request.Context(), c.Param("token"), c.Param("uid"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "email verified"})
}

// SendPasswordReset mails a password reset link.
func (h *Handler) SendPasswordReset(c *gin.Context) {
	var input emailRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindValidation, "request decoding", err, "request body is not valid JSON"))
		return
	}

	if err := h.users.SendPasswordReset(c.Request.Context(), input.Email); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset mail sent"})
}

type passwordResetConfirmRequest struct {
	UID         string `json:"uid"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ConfirmPasswordReset sets a new password from the mailed link.
func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var input passwordResetConfirmRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindValidation, "request decoding", err, "request body is not valid JSON"))
		return
	}

	err := h.users.ConfirmPasswordReset(c.Request.Context(), input.UID, input.Token, input.NewPassword)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password updated"})
}

type translateRequest struct {
	Text string `json:"text"`
}

// Translate returns the English rendition of a piece of text.
func (h *Handler) Translate(c *gin.Context) {
	var input translateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindValidation, "request decoding", err, "request body is not valid JSON"))
		return
	}
	if input.Text == "" {
		abortWithError(c, apperr.New(apperr.KindValidation, "translation", "text is required"))
		return
	}

	result, err := h.translator.Complete(c.Request.Context(), input.Text)
	if err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindUpstream, "translation", err, "translation failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

// Chat forwards a prompt to the general chat model.
func (h *Handler) Chat(c *gin.Context) {
	var input chatRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindValidation, "request decoding", err, "request body is not valid JSON"))
		return
	}
	if input.Prompt == "" {
		abortWithError(c, apperr.New(apperr.KindValidation, "chat", "prompt is required"))
		return
	}

	result, err := h.chat.Complete(c.Request.Context(), input.Prompt)
	if err != nil {
		abortWithError(c, apperr.Wrap(apperr.KindUpstream, "chat", err, "chat completion failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
