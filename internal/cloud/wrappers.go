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
// This file implements thin wrappers around the raw provider clients so the
// rest of the application programs against small capability interfaces:
//
//   - QuotaAwareChatModel: an OpenAI chat model bound to a fixed system
//     instruction, with request rate limiting and a per-call timeout. Rate
//     limiting keeps the service inside the account's requests-per-second
//     quota; calls are NOT retried, a failed round trip surfaces to the
//     pipeline as an upstream failure.
//   - VertexEmbedder: the Vertex AI embedding model used for title vectors.
//   - VertexPredictor: the Vertex AI endpoint predict call used by the
//     classification and regression endpoints.
package cloud

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
	"google.golang.org/api/aiplatform/v1"
	"google.golang.org/genai"
)

// QuotaAwareChatModel binds an OpenAI client to one logical chat model from
// the configuration: a model name, a fixed system instruction, sampling
// settings, and a rate limit.
type QuotaAwareChatModel struct {
	Client    *openai.Client // The shared OpenAI API client.
	Model     ChatModel      // The logical model configuration.
	RateLimit *rate.Limiter  // Limits outbound requests per second.
}

// NewQuotaAwareChatModel wraps client with the settings of one configured
// chat model. A zero or negative rate limit falls back to one request per
// second.
func NewQuotaAwareChatModel(client *openai.Client, model ChatModel) *QuotaAwareChatModel {
	rps := model.RateLimit
	if rps <= 0 {
		rps = 1
	}
	return &QuotaAwareChatModel{
		Client:    client,
		Model:     model,
		RateLimit: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Complete sends a single chat completion with the model's fixed system
// instruction and the given user content, and returns the assistant reply
// verbatim. The call waits for a rate-limiter token first, so a burst of
// pipeline runs degrades to queueing instead of quota errors.
func (q *QuotaAwareChatModel) Complete(ctx context.Context, userPrompt string) (string, error) {
	if err := q.RateLimit.Wait(ctx); err != nil {
		return "", err
	}

	if q.Model.TimeoutInSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(q.Model.TimeoutInSeconds)*time.Second)
		defer cancel()
	}

	resp, err := q.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       q.Model.Model,
		Temperature: q.Model.Temperature,
		MaxTokens:   q.Model.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: q.Model.SystemInstructions},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// VertexEmbedder wraps the GenAI embedding API for one configured model.
type VertexEmbedder struct {
	Models    *genai.Models // Handle to the GenAI model collection.
	ModelName string        // The embedding model to invoke.
	Dimension int           // The expected output vector length.
}

// Embed converts text into its embedding vector. The returned slice has
// exactly Dimension entries for a correctly deployed model; the caller treats
// any provider error as an upstream failure.
func (e *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := e.Models.EmbedContent(ctx, e.ModelName, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embed content failed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embed content returned no embeddings")
	}
	return resp.Embeddings[0].Values, nil
}

// VertexPredictor issues predict calls against deployed Vertex AI endpoints
// through the REST client. One predictor is shared by the classification and
// both regression endpoints; the endpoint resource name selects the model.
type VertexPredictor struct {
	Service *aiplatform.Service // The Vertex AI API client.
	Timeout time.Duration       // Per-call timeout, 0 means none beyond the request context.
}

// Predict sends instances to the named endpoint and returns the raw
// prediction payloads. Instances and predictions are JSON-shaped values; the
// command layer owns encoding and envelope unwrapping.
func (p *VertexPredictor) Predict(ctx context.Context, endpoint string, instances []interface{}) ([]interface{}, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	req := &aiplatform.GoogleCloudAiplatformV1PredictRequest{Instances: instances}
	resp, err := p.Service.Projects.Locations.Endpoints.Predict(endpoint, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("predict call to %s failed: %w", endpoint, err)
	}
	return resp.Predictions, nil
}
