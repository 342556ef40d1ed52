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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the service clients built from them. This file
// centralizes every configurable parameter of the system in one place:
// database credentials, OpenAI chat models, the Vertex AI prediction
// endpoints, prompt templates, mail delivery, and authentication settings.
package cloud

// Database holds the MySQL connection settings for the result store.
type Database struct {
	Host     string `toml:"host"`     // The database host name or IP.
	Port     int    `toml:"port"`     // The database port (default 3306).
	User     string `toml:"user"`     // The database user.
	Password string `toml:"password"` // The database password.
	Name     string `toml:"name"`     // The schema/database name.
}

// ChatModel describes one OpenAI chat-completion model configuration. The
// pipeline uses several logical models (language detection, translation,
// narrative analysis) that may point at the same underlying model name but
// carry different system instructions.
type ChatModel struct {
	Model              string  `toml:"model"`               // The OpenAI model name (e.g. "gpt-3.5-turbo").
	SystemInstructions string  `toml:"system_instructions"` // The fixed system prompt for this logical model.
	Temperature        float32 `toml:"temperature"`         // Sampling temperature.
	MaxTokens          int     `toml:"max_tokens"`          // Maximum tokens for the completion.
	RateLimit          int     `toml:"rate_limit"`          // Requests per second allowed against this model.
	TimeoutInSeconds   int     `toml:"timeout_in_seconds"`  // Per-call timeout.
}

// VertexEmbeddingModel describes the embedding model used to encode movie
// titles into the fixed-length vector the regression endpoints expect.
type VertexEmbeddingModel struct {
	Model     string `toml:"model"`     // The Vertex AI embedding model name.
	Dimension int    `toml:"dimension"` // The expected output vector length.
}

// PredictionEndpoints names the three deployed Vertex AI endpoints that make
// up the prediction service. Each value is a fully qualified endpoint
// resource name ("projects/.../locations/.../endpoints/...").
type PredictionEndpoints struct {
	Classification   string `toml:"classification"`     // Scenario-type text classification endpoint.
	Revenue          string `toml:"revenue"`            // Box-office revenue regression endpoint.
	Rating           string `toml:"rating"`             // Audience vote-average regression endpoint.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Per-call timeout applied to each predict call.
}

// PromptTemplates holds the text templates used to build LLM prompts.
type PromptTemplates struct {
	Analysis string `toml:"analysis"` // The template for the narrative analysis prompt.
}

// Auth holds the JWT signing settings for the authentication layer.
type Auth struct {
	Secret          string `toml:"secret"`            // The HMAC signing secret for access tokens.
	TokenTTLMinutes int    `toml:"token_ttl_minutes"` // Access token lifetime.
}

// Mail holds SMTP settings for verification and password-reset mail.
type Mail struct {
	Host          string `toml:"host"`            // SMTP host.
	Port          int    `toml:"port"`            // SMTP port.
	From          string `toml:"from"`            // From address for outbound mail.
	Username      string `toml:"username"`        // SMTP auth user (empty disables auth).
	Password      string `toml:"password"`        // SMTP auth password.
	VerifyBaseURL string `toml:"verify_base_url"` // Base URL used when building verification links.
}

// Reference points at optional JSON files that override the built-in static
// reference tables (genre averages and the scenario keyword table). When a
// path is empty the compiled-in defaults are used.
type Reference struct {
	GenreAveragesFile string `toml:"genre_averages_file"`
	KeywordTableFile  string `toml:"keyword_table_file"`
}

// Config is the top-level application configuration, loaded from TOML files.
type Config struct {
	Application struct {
		Name            string `toml:"name"`              // The service name, used in telemetry.
		GoogleProjectId string `toml:"google_project_id"` // The Google Cloud project ID.
		GoogleLocation  string `toml:"location"`          // The Google Cloud region for Vertex AI.
		Port            int    `toml:"port"`              // HTTP listen port.
	} `toml:"application"`
	Database        Database                        `toml:"database"`             // MySQL settings.
	Auth            Auth                            `toml:"auth"`                 // JWT settings.
	Mail            Mail                            `toml:"mail"`                 // SMTP settings.
	ChatModels      map[string]ChatModel            `toml:"chat_models"`          // Logical OpenAI models keyed by role (e.g. "translator").
	EmbeddingModels map[string]VertexEmbeddingModel `toml:"embedding_models"`     // Vertex embedding models keyed by a logical name.
	Endpoints       PredictionEndpoints             `toml:"prediction_endpoints"` // The three Vertex prediction endpoints.
	PromptTemplates PromptTemplates                 `toml:"prompt_templates"`     // LLM prompt templates.
	Reference       Reference                       `toml:"reference"`            // Static reference table overrides.
}

// NewConfig creates a Config with its map fields initialized so the TOML
// loader can populate them without nil-map panics.
func NewConfig() *Config {
	return &Config{
		ChatModels:      make(map[string]ChatModel),
		EmbeddingModels: make(map[string]VertexEmbeddingModel),
	}
}
