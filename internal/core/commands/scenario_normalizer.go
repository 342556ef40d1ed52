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
	"strings"
	"unicode"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/cor"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// ScenarioNormalizer brings a scenario into the canonical form the models
// were trained on: English text with punctuation stripped and whitespace
// collapsed. It asks the detector model for the scenario's language and,
// when the answer is not English, asks the translator model for an English
// rendition. The original request is left untouched; the normalized form is
// written as a copy.
type ScenarioNormalizer struct {
	cor.BaseCommand
	detector   TextCompleter
	translator TextCompleter
}

func NewScenarioNormalizer(name string, detector TextCompleter, translator TextCompleter) *ScenarioNormalizer {
	return &ScenarioNormalizer{
		BaseCommand: *cor.NewBaseCommand(name),
		detector:    detector,
		translator:  translator,
	}
}

func (s *ScenarioNormalizer) Execute(context cor.Context) {
	ctx, span := s.GetTracer().Start(context.GetContext(), fmt.Sprintf("%s-execute", s.GetName()))
	defer span.End()

	request := context.Get(s.GetInputParam()).(*model.PredictionRequest)
	scenario := request.Scenario

	language, err := s.detector.Complete(ctx, scenario)
	if err != nil {
		context.AddError(s.GetName(), apperr.Wrap(apperr.KindUpstream, "language detection", err, "language detection failed"))
		s.GetErrorCounter().Add(ctx, 1)
		return
	}

	if !isEnglish(language) {
		translated, err := s.translator.Complete(ctx, scenario)
		if err != nil {
			context.AddError(s.GetName(), apperr.Wrap(apperr.KindUpstream, "translation", err, "translation failed"))
			s.GetErrorCounter().Add(ctx, 1)
			return
		}
		scenario = translated
	}

	normalized := *request
	normalized.Scenario = CleanText(scenario)

	context.Add(NormalizedRequestParamName, &normalized)
	context.Add(s.GetOutputParam(), &normalized)
	s.GetSuccessCounter().Add(ctx, 1)
}

// isEnglish interprets the detector's reply. The model answers with a
// language name, sometimes with trailing punctuation, so the check is a
// case-insensitive containment test.
func isEnglish(reply string) bool {
	return strings.Contains(strings.ToLower(reply), "english")
}

// CleanText normalizes free text for the feature pipeline: every character
// that is not a letter, digit, or space is removed, runs of whitespace
// collapse to a single space, and the result is trimmed. The operation is
// idempotent.
func CleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
