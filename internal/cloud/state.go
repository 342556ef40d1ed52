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

// Package cloud provides components for interacting with external services.
// This file initializes and holds all the clients the application talks to.
// It acts as a dependency injection container: NewServiceClients is called
// once at startup with the loaded configuration and produces a single,
// shared ServiceClients struct that is passed to the API layer, the
// prediction workflow, and the tests.
package cloud

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/option"
	"google.golang.org/genai"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// EnvOpenAIAPIKey names the environment variable holding the OpenAI API key.
// The key intentionally never appears in the TOML configuration files.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// openAIRequestTimeout bounds each HTTP round trip to the OpenAI API.
const openAIRequestTimeout = 60 * time.Second

// ServiceClients is the container for all external service connections:
// the MySQL result store, the OpenAI chat models, the Vertex AI embedding
// model, and the Vertex AI prediction endpoints.
type ServiceClients struct {
	DB          *gorm.DB                        // MySQL connection used by the result store and user services.
	OpenAI      *openai.Client                  // The shared OpenAI API client.
	GenAIClient *genai.Client                   // Client for the Vertex AI GenAI surface (embeddings).
	Vertex      *aiplatform.Service             // Client for Vertex AI endpoint predict calls.
	ChatModels  map[string]*QuotaAwareChatModel // Configured chat models keyed by role (e.g. "translator").
	Embedders   map[string]*VertexEmbedder      // Configured embedding models keyed by a logical name.
	Predictor   *VertexPredictor                // The shared predictor over the three prediction endpoints.
}

// Close releases the database connection. The API clients hold no long-lived
// resources beyond pooled HTTP connections managed by their transports.
func (c *ServiceClients) Close() {
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// NewServiceClients initializes every external client from the configuration.
//
// The OpenAI key comes from the OPENAI_API_KEY environment variable; Google
// clients use application default credentials. Any initialization failure is
// returned to the caller, which treats it as fatal at startup.
func NewServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		config.Database.User,
		config.Database.Password,
		config.Database.Host,
		config.Database.Port,
		config.Database.Name)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	apiKey := os.Getenv(EnvOpenAIAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing %s in environment", EnvOpenAIAPIKey)
	}
	openAIConfig := openai.DefaultConfig(apiKey)
	openAIConfig.HTTPClient = &http.Client{Timeout: openAIRequestTimeout}
	openAIClient := openai.NewClientWithConfig(openAIConfig)

	chatModels := make(map[string]*QuotaAwareChatModel)
	for key, model := range config.ChatModels {
		chatModels[key] = NewQuotaAwareChatModel(openAIClient, model)
	}

	genAIClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	embedders := make(map[string]*VertexEmbedder)
	for key, model := range config.EmbeddingModels {
		embedders[key] = &VertexEmbedder{
			Models:    genAIClient.Models,
			ModelName: model.Model,
			Dimension: model.Dimension,
		}
	}

	// Predict calls must go to the regional API endpoint of the deployed
	// models, not the global one.
	vertex, err := aiplatform.NewService(ctx, option.WithEndpoint(
		fmt.Sprintf("https://%s-aiplatform.googleapis.com/", config.Application.GoogleLocation)))
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}

	predictor := &VertexPredictor{
		Service: vertex,
		Timeout: time.Duration(config.Endpoints.TimeoutInSeconds) * time.Second,
	}

	return &ServiceClients{
		DB:          db,
		OpenAI:      openAIClient,
		GenAIClient: genAIClient,
		Vertex:      vertex,
		ChatModels:  chatModels,
		Embedders:   embedders,
		Predictor:   predictor,
	}, nil
}
