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

package commands_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/commands"
	"github.com/storyzer/storyzer-api/internal/core/cor"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

const (
	revenueEndpoint = "projects/p/locations/l/endpoints/revenue"
	ratingEndpoint  = "projects/p/locations/l/endpoints/rating"
)

func regressorContext(reference *model.ReferenceData) cor.Context {
	request := &model.PredictionRequest{
		Title:            "Test",
		Scenario:         "A detective hunts a killer",
		Budget:           "1000",
		OriginalLanguage: "en",
		Runtime:          "100",
		Genres:           []string{"Crime"},
	}
	_ = request.Validate()
	features := model.NewFeatureVector(request, []float32{0.1}, reference.GenreVocabulary)
	features.ScenarioType = 2

	chainCtx := newChainContext()
	chainCtx.Add(cor.CtxIn, features)
	chainCtx.Add(commands.ScenarioResultParamName, &model.ScenarioResult{
		PredType:    2,
		TypeKeyword: reference.KeywordTable[2],
	})
	return chainCtx
}

func TestRegressorAggregatesBothEndpoints(t *testing.T) {
	reference := model.NewReferenceData()
	predictor := newFakePredictor()
	predictor.predictions[revenueEndpoint] = []interface{}{
		map[string]interface{}{"value": 42_000_000.0},
	}
	// The bare-number response form.
	predictor.predictions[ratingEndpoint] = []interface{}{7.2}

	command := commands.NewOutcomeRegressor("regressor", predictor, revenueEndpoint, ratingEndpoint)
	chainCtx := regressorContext(reference)
	command.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	result := chainCtx.Get(cor.CtxOut).(*model.PredictionResult)
	assert.Equal(t, 42_000_000.0, result.Revenue)
	assert.Equal(t, 7.2, result.VoteAverage)
	assert.Equal(t, 2, result.Scenario.PredType)

	assert.Equal(t, 1, predictor.callCount(revenueEndpoint))
	assert.Equal(t, 1, predictor.callCount(ratingEndpoint))
}

func TestRegressorFailsWhenOneEndpointFails(t *testing.T) {
	reference := model.NewReferenceData()
	predictor := newFakePredictor()
	predictor.predictions[revenueEndpoint] = []interface{}{1000.0}
	predictor.errs[ratingEndpoint] = errors.New("endpoint unavailable")

	command := commands.NewOutcomeRegressor("regressor", predictor, revenueEndpoint, ratingEndpoint)
	chainCtx := regressorContext(reference)
	command.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	err := chainCtx.GetErrors()["regressor"]
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Nil(t, chainCtx.Get(cor.CtxOut))
}
