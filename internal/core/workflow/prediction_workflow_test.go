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

package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/model"
	"github.com/storyzer/storyzer-api/internal/core/workflow"
)

const (
	classifyEndpoint = "projects/p/locations/l/endpoints/classify"
	revenueEndpoint  = "projects/p/locations/l/endpoints/revenue"
	ratingEndpoint   = "projects/p/locations/l/endpoints/rating"

	promptTemplate = "{{.Request}} {{.Prediction}} {{.Keywords}} {{.GenreAverages}}"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
}

func (s *stubCompleter) Complete(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.reply, s.err
}

type stubEmbedder struct {
	vector []float32
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return s.vector, nil
}

type stubPredictor struct {
	mu          sync.Mutex
	predictions map[string][]interface{}
	errs        map[string]error
	calls       int
}

func (s *stubPredictor) Predict(_ context.Context, endpoint string, _ []interface{}) ([]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.errs[endpoint]; err != nil {
		return nil, err
	}
	return s.predictions[endpoint], nil
}

type stubSaver struct {
	saved []*model.Analysis
}

func (s *stubSaver) Save(_ context.Context, record *model.Analysis) error {
	record.ID = uint(len(s.saved) + 1)
	s.saved = append(s.saved, record)
	return nil
}

type harness struct {
	detector   *stubCompleter
	translator *stubCompleter
	analyzer   *stubCompleter
	embedder   *stubEmbedder
	predictor  *stubPredictor
	saver      *stubSaver
	workflow   *workflow.PredictionWorkflow
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		detector:   &stubCompleter{reply: "Spanish"},
		translator: &stubCompleter{reply: "Hello world"},
		analyzer:   &stubCompleter{reply: "A solid mid-budget bet."},
		embedder:   &stubEmbedder{vector: []float32{0.5, 0.25}},
		saver:      &stubSaver{},
		predictor: &stubPredictor{
			predictions: map[string][]interface{}{
				classifyEndpoint: {map[string]interface{}{"confidences": []interface{}{0.1, 0.8, 0.1}}},
				revenueEndpoint:  {map[string]interface{}{"value": 12_500_000.0}},
				ratingEndpoint:   {6.9},
			},
			errs: map[string]error{},
		},
	}

	var err error
	h.workflow, err = workflow.NewPredictionWorkflow(
		workflow.PredictionProviders{
			LanguageDetector: h.detector,
			Translator:       h.translator,
			Analyzer:         h.analyzer,
			Embedder:         h.embedder,
			Predictor:        h.predictor,
			Saver:            h.saver,
		},
		workflow.PredictionEndpoints{
			Classification: classifyEndpoint,
			Revenue:        revenueEndpoint,
			Rating:         ratingEndpoint,
		},
		promptTemplate,
		model.NewReferenceData(),
	)
	require.NoError(t, err)
	return h
}

func spanishRequest() *model.PredictionRequest {
	return &model.PredictionRequest{
		Title:            "El Último Puerto",
		Scenario:         "¡Hola mundo!",
		Budget:           "5000000",
		OriginalLanguage: "es",
		Runtime:          "98",
		Genres:           []string{"Drama"},
	}
}

func TestRunTranslatesClassifiesAndPersists(t *testing.T) {
	h := newHarness(t)
	owner := uint(3)

	response, err := h.workflow.Run(context.Background(), &owner, spanishRequest())
	require.NoError(t, err)

	assert.Equal(t, uint(1), response.ID)
	assert.Equal(t, 12_500_000.0, response.Output.Revenue)
	assert.Equal(t, 6.9, response.Output.VoteAverage)
	assert.Equal(t, 1, response.Output.Scenario.PredType)
	assert.Equal(t, workflow.AnalysisCategory, response.Category)
	assert.Equal(t, "A solid mid-budget bet.", response.Analyze)

	assert.Equal(t, 1, h.detector.calls)
	assert.Equal(t, 1, h.translator.calls)
	assert.Equal(t, 1, h.embedder.calls)
	assert.Equal(t, 3, h.predictor.calls)

	require.Len(t, h.saver.saved, 1)
	record := h.saver.saved[0]
	require.NotNil(t, record.UserID)
	assert.Equal(t, uint(3), *record.UserID)

	// The persisted input is the submitted payload, not the translation.
	var stored model.PredictionRequest
	require.NoError(t, json.Unmarshal(record.Input, &stored))
	assert.Equal(t, "¡Hola mundo!", stored.Scenario)
}

func TestRunRejectsInvalidRequestsBeforeAnyRemoteCall(t *testing.T) {
	h := newHarness(t)

	request := spanishRequest()
	request.Scenario = ""
	_, err := h.workflow.Run(context.Background(), nil, request)

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, 0, h.detector.calls)
	assert.Equal(t, 0, h.translator.calls)
	assert.Equal(t, 0, h.embedder.calls)
	assert.Equal(t, 0, h.predictor.calls)
	assert.Empty(t, h.saver.saved)
}

func TestRunFailsWithoutPersistenceWhenARegressionFails(t *testing.T) {
	h := newHarness(t)
	h.predictor.errs[ratingEndpoint] = errors.New("deadline exceeded")

	_, err := h.workflow.Run(context.Background(), nil, spanishRequest())

	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	assert.Empty(t, h.saver.saved)
}

func TestRunSkipsTranslationForEnglishScenarios(t *testing.T) {
	h := newHarness(t)
	h.detector.reply = "English"

	request := spanishRequest()
	request.Scenario = "A lighthouse keeper finds a message in a bottle."
	request.OriginalLanguage = "en"

	_, err := h.workflow.Run(context.Background(), nil, request)
	require.NoError(t, err)
	assert.Equal(t, 0, h.translator.calls)
}
