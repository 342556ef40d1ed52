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

// Package commands holds the individual units of work that make up the
// prediction workflow. Each command wraps one interaction: a chat model
// call, an embedding, a prediction endpoint call, or a database write.
// Remote providers are consumed through the small interfaces below so
// tests can substitute counting fakes.
package commands

import "context"

// Named context parameters shared between commands. The primary data flow
// uses the chain's CtxIn/CtxOut piping; these keys carry the values that
// more than one command needs.
const (
	// RawRequestParamName holds the request exactly as submitted, before
	// translation and text cleanup. It is what gets persisted.
	RawRequestParamName = "__raw_request__"

	// NormalizedRequestParamName holds the request after language
	// normalization, the form the classifier and narrative consume.
	NormalizedRequestParamName = "__normalized_request__"

	// ScenarioResultParamName holds the classification outcome.
	ScenarioResultParamName = "__scenario_result__"

	// NarrativeParamName holds the generated analysis text.
	NarrativeParamName = "__narrative__"

	// OwnerParamName holds the *uint id of the authenticated user, when
	// there is one.
	OwnerParamName = "__owner__"
)

// TextCompleter produces a chat completion for a single user prompt. The
// system instructions are part of the implementation's configuration.
type TextCompleter interface {
	Complete(ctx context.Context, userPrompt string) (string, error)
}

// Embedder turns a piece of text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EndpointPredictor calls a deployed prediction endpoint with a batch of
// instances and returns the raw predictions.
type EndpointPredictor interface {
	Predict(ctx context.Context, endpoint string, instances []interface{}) ([]interface{}, error)
}
