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

// Package workflow assembles the pipeline commands into executable chains.
package workflow

import (
	"context"
	"encoding/json"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/commands"
	"github.com/storyzer/storyzer-api/internal/core/cor"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// AnalysisCategory tags every record this pipeline persists; the listing
// path filters on it.
const AnalysisCategory = "movie"

// PredictionEndpoints names the three deployed endpoints the workflow
// calls, as fully qualified endpoint resource names.
type PredictionEndpoints struct {
	Classification string
	Revenue        string
	Rating         string
}

// PredictionProviders bundles the remote dependencies of the workflow.
type PredictionProviders struct {
	LanguageDetector commands.TextCompleter
	Translator       commands.TextCompleter
	Analyzer         commands.TextCompleter
	Embedder         commands.Embedder
	Predictor        commands.EndpointPredictor
	Saver            commands.ResultSaver
}

// PredictionWorkflow runs a movie concept through normalization, feature
// extraction, the three prediction endpoints, narrative generation, and
// persistence.
type PredictionWorkflow struct {
	chain cor.Chain
}

// NewPredictionWorkflow wires the command chain. The order is fixed:
// classification must complete before the regressions because the scenario
// type is one of their features.
func NewPredictionWorkflow(
	providers PredictionProviders,
	endpoints PredictionEndpoints,
	analysisPromptTemplate string,
	reference *model.ReferenceData,
) (*PredictionWorkflow, error) {
	narrative, err := commands.NewNarrativeBuilder(
		"narrative-builder", providers.Analyzer, analysisPromptTemplate, reference)
	if err != nil {
		return nil, err
	}

	chain := cor.NewBaseChain("movie-prediction")
	chain.AddCommand(commands.NewScenarioNormalizer(
		"scenario-normalizer", providers.LanguageDetector, providers.Translator))
	chain.AddCommand(commands.NewFeatureBuilder(
		"feature-builder", providers.Embedder, reference))
	chain.AddCommand(commands.NewScenarioClassifier(
		"scenario-classifier", providers.Predictor, endpoints.Classification, reference))
	chain.AddCommand(commands.NewOutcomeRegressor(
		"outcome-regressor", providers.Predictor, endpoints.Revenue, endpoints.Rating))
	chain.AddCommand(narrative)
	chain.AddCommand(commands.NewResultWriter("result-writer", providers.Saver, AnalysisCategory))

	return &PredictionWorkflow{chain: chain}, nil
}

// Run validates the request and executes the chain. Validation failures
// return before any remote provider is touched. On success the returned
// response mirrors the persisted record.
func (w *PredictionWorkflow) Run(ctx context.Context, userID *uint, request *model.PredictionRequest) (*model.PredictionResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, request)
	chainCtx.Add(commands.RawRequestParamName, request)
	if userID != nil {
		chainCtx.Add(commands.OwnerParamName, userID)
	}

	w.chain.Execute(chainCtx)

	if chainCtx.HasErrors() {
		for _, err := range chainCtx.GetErrors() {
			return nil, err
		}
	}

	record, ok := chainCtx.Get(cor.CtxIn).(*model.Analysis)
	if !ok {
		return nil, apperr.New(apperr.KindInconsistency, "workflow", "prediction chain finished without a stored record")
	}

	var result model.PredictionResult
	if err := json.Unmarshal(record.Output, &result); err != nil {
		return nil, apperr.Wrap(apperr.KindInconsistency, "workflow", err, "stored prediction result does not decode")
	}

	return &model.PredictionResponse{
		ID:       record.ID,
		Input:    request,
		Output:   &result,
		Analyze:  record.Analyze,
		Category: record.Category,
	}, nil
}
