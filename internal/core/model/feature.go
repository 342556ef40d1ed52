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

import (
	"strconv"
	"strings"
)

// FeatureVector is the numeric representation of a prediction request as
// the regression endpoints expect it: the title embedding, the parsed
// budget and runtime, the original language, a one-hot column per known
// genre, and (once classification has run) the scenario type index.
type FeatureVector struct {
	TitleEmbedding   []float32
	Budget           float64
	OriginalLanguage string
	Runtime          int
	ScenarioType     int

	// genreColumns and vocabulary keep the one-hot columns in the fixed
	// order the models were trained with.
	vocabulary   []string
	genreColumns map[string]int
}

// NewFeatureVector builds the vector for a validated request. Column order
// follows the vocabulary. Genres outside the vocabulary are ignored; a
// duplicate genre still sets its column to one exactly once.
func NewFeatureVector(req *PredictionRequest, embedding []float32, vocabulary []string) *FeatureVector {
	columns := make(map[string]int, len(vocabulary))
	for _, genre := range vocabulary {
		columns[genre] = 0
	}
	for _, genre := range req.Genres {
		if _, known := columns[genre]; known {
			columns[genre] = 1
		}
	}
	return &FeatureVector{
		TitleEmbedding:   embedding,
		Budget:           req.BudgetValue,
		OriginalLanguage: req.OriginalLanguage,
		Runtime:          req.RuntimeValue,
		vocabulary:       vocabulary,
		genreColumns:     columns,
	}
}

// GenreColumn returns the one-hot value for a genre.
func (f *FeatureVector) GenreColumn(genre string) int {
	return f.genreColumns[genre]
}

// ActiveGenres returns the genres whose column is set, in vocabulary order.
func (f *FeatureVector) ActiveGenres() []string {
	var active []string
	for _, genre := range f.vocabulary {
		if f.genreColumns[genre] == 1 {
			active = append(active, genre)
		}
	}
	return active
}

// Instance renders the vector as a single prediction instance. Every value
// is coerced to a string, which is how the deployed tabular models consume
// their input: the embedding becomes a comma-joined list of floats and the
// one-hot columns become "0" or "1".
func (f *FeatureVector) Instance() map[string]interface{} {
	instance := make(map[string]interface{}, len(f.vocabulary)+5)
	instance["title"] = joinFloats(f.TitleEmbedding)
	instance["budget"] = strconv.FormatFloat(f.Budget, 'f', -1, 64)
	instance["original_language"] = f.OriginalLanguage
	instance["runtime"] = strconv.Itoa(f.Runtime)
	instance["scenario_type"] = strconv.Itoa(f.ScenarioType)
	for _, genre := range f.vocabulary {
		instance[genreColumnName(genre)] = strconv.Itoa(f.genreColumns[genre])
	}
	return instance
}

func genreColumnName(genre string) string {
	return "genre_" + strings.ReplaceAll(genre, " ", "_")
}

func joinFloats(values []float32) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
