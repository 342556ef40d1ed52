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

package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/cor"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// OutcomeRegressor calls the revenue and rating regression endpoints with
// the completed feature vector. The two calls are independent, so they run
// concurrently; the command fails if either one does.
type OutcomeRegressor struct {
	cor.BaseCommand
	predictor       EndpointPredictor
	revenueEndpoint string
	ratingEndpoint  string
}

func NewOutcomeRegressor(name string, predictor EndpointPredictor, revenueEndpoint string, ratingEndpoint string) *OutcomeRegressor {
	return &OutcomeRegressor{
		BaseCommand:     *cor.NewBaseCommand(name),
		predictor:       predictor,
		revenueEndpoint: revenueEndpoint,
		ratingEndpoint:  ratingEndpoint,
	}
}

func (o *OutcomeRegressor) IsExecutable(context cor.Context) bool {
	return o.BaseCommand.IsExecutable(context) && context.Get(ScenarioResultParamName) != nil
}

func (o *OutcomeRegressor) Execute(context cor.Context) {
	ctx, span := o.GetTracer().Start(context.GetContext(), fmt.Sprintf("%s-execute", o.GetName()))
	defer span.End()

	features := context.Get(o.GetInputParam()).(*model.FeatureVector)
	scenario := context.Get(ScenarioResultParamName).(*model.ScenarioResult)
	instances := []interface{}{features.Instance()}

	var (
		wg                    sync.WaitGroup
		revenue, rating       float64
		revenueErr, ratingErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		revenue, revenueErr = o.predictValue(ctx, "revenue regression", o.revenueEndpoint, instances)
	}()
	go func() {
		defer wg.Done()
		rating, ratingErr = o.predictValue(ctx, "rating regression", o.ratingEndpoint, instances)
	}()
	wg.Wait()

	if revenueErr != nil {
		context.AddError(o.GetName(), revenueErr)
		o.GetErrorCounter().Add(ctx, 1)
		return
	}
	if ratingErr != nil {
		context.AddError(o.GetName(), ratingErr)
		o.GetErrorCounter().Add(ctx, 1)
		return
	}

	context.Add(o.GetOutputParam(), &model.PredictionResult{
		Revenue:     revenue,
		VoteAverage: rating,
		Scenario:    *scenario,
	})
	o.GetSuccessCounter().Add(ctx, 1)
}

func (o *OutcomeRegressor) predictValue(ctx context.Context, stage string, endpoint string, instances []interface{}) (float64, error) {
	predictions, err := o.predictor.Predict(ctx, endpoint, instances)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, stage, err, stage+" endpoint call failed")
	}
	value, err := extractRegressionValue(predictions)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUpstream, stage, err, stage+" endpoint returned an unexpected payload")
	}
	return value, nil
}

// extractRegressionValue reads the scalar out of a regression response.
// Deployed tabular models wrap the scalar in a {"value": n} object; some
// return the bare number. Both forms are accepted.
func extractRegressionValue(predictions []interface{}) (float64, error) {
	if len(predictions) == 0 {
		return 0, fmt.Errorf("empty prediction list")
	}
	switch p := predictions[0].(type) {
	case float64:
		return p, nil
	case map[string]interface{}:
		value, ok := p["value"].(float64)
		if !ok {
			return 0, fmt.Errorf("prediction object has no numeric value field")
		}
		return value, nil
	default:
		return 0, fmt.Errorf("prediction is neither a number nor an object")
	}
}
