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
	"fmt"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/cor"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// ScenarioClassifier sends the normalized scenario text to the deployed
// text classification endpoint and resolves the winning class to a
// scenario type and its keyword table. The winning class is the index of
// the highest confidence; on a tie the lowest index wins. The resulting
// type is also stamped onto the feature vector so the downstream
// regressions see it.
type ScenarioClassifier struct {
	cor.BaseCommand
	predictor EndpointPredictor
	endpoint  string
	reference *model.ReferenceData
}

func NewScenarioClassifier(name string, predictor EndpointPredictor, endpoint string, reference *model.ReferenceData) *ScenarioClassifier {
	return &ScenarioClassifier{
		BaseCommand: *cor.NewBaseCommand(name),
		predictor:   predictor,
		endpoint:    endpoint,
		reference:   reference,
	}
}

func (s *ScenarioClassifier) IsExecutable(context cor.Context) bool {
	return s.BaseCommand.IsExecutable(context) && context.Get(NormalizedRequestParamName) != nil
}

func (s *ScenarioClassifier) Execute(context cor.Context) {
	ctx, span := s.GetTracer().Start(context.GetContext(), fmt.Sprintf("%s-execute", s.GetName()))
	defer span.End()

	const stage = "scenario classification"

	features := context.Get(s.GetInputParam()).(*model.FeatureVector)
	request := context.Get(NormalizedRequestParamName).(*model.PredictionRequest)

	instances := []interface{}{
		map[string]interface{}{
			"mimeType": "text/plain",
			"content":  request.Scenario,
		},
	}
	predictions, err := s.predictor.Predict(ctx, s.endpoint, instances)
	if err != nil {
		context.AddError(s.GetName(), apperr.Wrap(apperr.KindUpstream, stage, err, "classification endpoint call failed"))
		s.GetErrorCounter().Add(ctx, 1)
		return
	}

	confidences, err := extractConfidences(predictions)
	if err != nil {
		context.AddError(s.GetName(), apperr.Wrap(apperr.KindUpstream, stage, err, "classification endpoint returned an unexpected payload"))
		s.GetErrorCounter().Add(ctx, 1)
		return
	}

	predType := argmax(confidences)
	keywords, ok := s.reference.Keywords(predType)
	if !ok {
		context.AddError(s.GetName(), apperr.New(apperr.KindInconsistency, stage, "scenario type %d has no keyword table", predType))
		s.GetErrorCounter().Add(ctx, 1)
		return
	}

	features.ScenarioType = predType
	context.Add(ScenarioResultParamName, &model.ScenarioResult{
		PredType:    predType,
		TypeKeyword: keywords,
	})
	context.Add(s.GetOutputParam(), features)
	s.GetSuccessCounter().Add(ctx, 1)
}

// extractConfidences pulls the confidence list out of the first prediction
// of a classification response.
func extractConfidences(predictions []interface{}) ([]float64, error) {
	if len(predictions) == 0 {
		return nil, fmt.Errorf("empty prediction list")
	}
	fields, ok := predictions[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("prediction is not an object")
	}
	raw, ok := fields["confidences"].([]interface{})
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("prediction has no confidences")
	}
	confidences := make([]float64, len(raw))
	for i, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("confidence %d is not a number", i)
		}
		confidences[i] = f
	}
	return confidences, nil
}

// argmax returns the index of the largest value; ties keep the earliest
// index.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
