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

package model

// ScenarioResult carries the outcome of scenario classification: the
// winning type index and that type's keyword frequency table.
type ScenarioResult struct {
	PredType    int            `json:"pred_type"`
	TypeKeyword map[string]int `json:"type_keyword"`
}

// PredictionResult aggregates the three model outputs for one request.
type PredictionResult struct {
	Revenue     float64        `json:"revenue"`
	VoteAverage float64        `json:"vote_average"`
	Scenario    ScenarioResult `json:"scenario"`
}

// PredictionResponse is the wire shape returned to the caller after a
// successful pipeline run. It mirrors the persisted Analysis record.
type PredictionResponse struct {
	ID       uint               `json:"id"`
	Input    *PredictionRequest `json:"input"`
	Output   *PredictionResult  `json:"output"`
	Analyze  string             `json:"analyze"`
	Category string             `json:"category"`
}
