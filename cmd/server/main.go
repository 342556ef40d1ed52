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

// The server command runs the Storyzer prediction API: movie concept
// predictions, stored analysis results, accounts, and authentication.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/storyzer/storyzer-api/internal/api"
	"github.com/storyzer/storyzer-api/internal/cloud"
	"github.com/storyzer/storyzer-api/internal/core/model"
	"github.com/storyzer/storyzer-api/internal/core/services"
	"github.com/storyzer/storyzer-api/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx := context.Background()
	telemetry.SetupLogging()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := GetConfig()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("error setting up telemetry", "error", err)
		os.Exit(1)
	}

	clients, err := cloud.NewServiceClients(ctx, config)
	if err != nil {
		slog.Error("error initializing service clients", "error", err)
		os.Exit(1)
	}
	defer clients.Close()

	if err := clients.DB.AutoMigrate(&model.User{}, &model.Analysis{}); err != nil {
		slog.Error("error migrating database schema", "error", err)
		os.Exit(1)
	}

	reference, err := LoadReference(config)
	if err != nil {
		slog.Error("error loading reference tables", "error", err)
		os.Exit(1)
	}

	results := services.NewResultService(clients.DB)
	mailer := services.NewMailer(config.Mail)
	users := services.NewUserService(clients.DB, mailer, config.Mail)
	tokens := services.NewTokenService(config.Auth)

	prediction, err := BuildPredictionWorkflow(clients, config, reference, results)
	if err != nil {
		slog.Error("error building the prediction workflow", "error", err)
		os.Exit(1)
	}

	translator, err := ChatModel(clients, RoleTranslator)
	if err != nil {
		slog.Error("error resolving chat models", "error", err)
		os.Exit(1)
	}
	chat, err := ChatModel(clients, RoleChat)
	if err != nil {
		slog.Error("error resolving chat models", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(prediction, results, users, tokens, translator, chat)

	router := gin.New()
	router.Use(
		otelgin.Middleware(config.Application.Name),
		gin.Recovery(),
		cors.New(CorsConfig()))
	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Application.Port),
		Handler: router,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()
	slog.Info("server started", "port", config.Application.Port)

	<-sigCtx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during server shutdown", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("error during telemetry shutdown", "error", err)
	}
	slog.Info("server stopped")
}
