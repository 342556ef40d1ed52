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

package main

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"

	"github.com/storyzer/storyzer-api/internal/cloud"
	"github.com/storyzer/storyzer-api/internal/core/model"
	"github.com/storyzer/storyzer-api/internal/core/services"
	"github.com/storyzer/storyzer-api/internal/core/workflow"
)

// Logical chat model roles expected in the configuration's chat_models
// table, and the logical embedder name for the title embedding.
const (
	RoleLanguageDetector = "language_detector"
	RoleTranslator       = "translator"
	RoleAnalyzer         = "analyzer"
	RoleChat             = "chat"
	EmbedderTitle        = "title"
)

// GetConfig loads the hierarchical TOML configuration.
func GetConfig() *cloud.Config {
	config := cloud.NewConfig()
	cloud.LoadConfig(config)
	return config
}

// LoadReference builds the static reference tables, applying any file
// overrides named in the configuration.
func LoadReference(config *cloud.Config) (*model.ReferenceData, error) {
	reference := model.NewReferenceData()
	if config.Reference.KeywordTableFile != "" {
		if err := reference.LoadKeywordTable(config.Reference.KeywordTableFile); err != nil {
			return nil, err
		}
	}
	if config.Reference.GenreAveragesFile != "" {
		if err := reference.LoadGenreAverages(config.Reference.GenreAveragesFile); err != nil {
			return nil, err
		}
	}
	return reference, nil
}

// ChatModel returns the configured chat model for a role, or an error
// naming the missing configuration entry.
func ChatModel(clients *cloud.ServiceClients, role string) (*cloud.QuotaAwareChatModel, error) {
	chatModel, ok := clients.ChatModels[role]
	if !ok {
		return nil, fmt.Errorf("no chat model configured for role %q", role)
	}
	return chatModel, nil
}

// BuildPredictionWorkflow assembles the full pipeline from the shared
// service clients.
func BuildPredictionWorkflow(
	clients *cloud.ServiceClients,
	config *cloud.Config,
	reference *model.ReferenceData,
	results *services.ResultService,
) (*workflow.PredictionWorkflow, error) {
	detector, err := ChatModel(clients, RoleLanguageDetector)
	if err != nil {
		return nil, err
	}
	translator, err := ChatModel(clients, RoleTranslator)
	if err != nil {
		return nil, err
	}
	analyzer, err := ChatModel(clients, RoleAnalyzer)
	if err != nil {
		return nil, err
	}
	embedder, ok := clients.Embedders[EmbedderTitle]
	if !ok {
		return nil, fmt.Errorf("no embedding model configured for %q", EmbedderTitle)
	}

	return workflow.NewPredictionWorkflow(
		workflow.PredictionProviders{
			LanguageDetector: detector,
			Translator:       translator,
			Analyzer:         analyzer,
			Embedder:         embedder,
			Predictor:        clients.Predictor,
			Saver:            results,
		},
		workflow.PredictionEndpoints{
			Classification: config.Endpoints.Classification,
			Revenue:        config.Endpoints.Revenue,
			Rating:         config.Endpoints.Rating,
		},
		config.PromptTemplates.Analysis,
		reference,
	)
}

// CorsConfig allows browser clients from any origin to call the API with
// bearer tokens.
func CorsConfig() cors.Config {
	return cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
}
