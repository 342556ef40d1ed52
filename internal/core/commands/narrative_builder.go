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
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/storyzer/storyzer-api/internal/core/cor"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// NarrativePromptValues is the data handed to the analysis prompt
// template. Each field is a JSON rendition of one part of the run.
type NarrativePromptValues struct {
	Request       string
	Prediction    string
	Keywords      string
	GenreAverages string
}

// NarrativeBuilder asks the analysis chat model to write a plain-language
// interpretation of the prediction. The narrative is advisory: if the
// model call fails, the command logs the failure and the run proceeds with
// an empty narrative rather than losing the prediction.
type NarrativeBuilder struct {
	cor.BaseCommand
	completer TextCompleter
	prompt    *template.Template
	reference *model.ReferenceData
}

func NewNarrativeBuilder(name string, completer TextCompleter, promptTemplate string, reference *model.ReferenceData) (*NarrativeBuilder, error) {
	prompt, err := template.New(name).Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse analysis prompt template: %w", err)
	}
	return &NarrativeBuilder{
		BaseCommand: *cor.NewBaseCommand(name),
		completer:   completer,
		prompt:      prompt,
		reference:   reference,
	}, nil
}

func (n *NarrativeBuilder) IsExecutable(context cor.Context) bool {
	return n.BaseCommand.IsExecutable(context) && context.Get(NormalizedRequestParamName) != nil
}

func (n *NarrativeBuilder) Execute(context cor.Context) {
	ctx, span := n.GetTracer().Start(context.GetContext(), fmt.Sprintf("%s-execute", n.GetName()))
	defer span.End()

	result := context.Get(n.GetInputParam()).(*model.PredictionResult)
	request := context.Get(NormalizedRequestParamName).(*model.PredictionRequest)

	narrative := ""
	prompt, err := n.renderPrompt(request, result)
	if err == nil {
		narrative, err = n.completer.Complete(ctx, prompt)
	}
	if err != nil {
		slog.WarnContext(ctx, "narrative generation failed, continuing without analysis",
			"command", n.GetName(), "error", err)
		narrative = ""
		n.GetErrorCounter().Add(ctx, 1)
	} else {
		n.GetSuccessCounter().Add(ctx, 1)
	}

	// Chat models escape quotes inside the JSON-heavy prompt echo often
	// enough that stray backslashes reach the output. Strip them.
	narrative = strings.ReplaceAll(narrative, "\\", "")

	context.Add(NarrativeParamName, narrative)
	context.Add(n.GetOutputParam(), result)
}

func (n *NarrativeBuilder) renderPrompt(request *model.PredictionRequest, result *model.PredictionResult) (string, error) {
	averages := make(map[string]model.GenreStats, len(request.Genres))
	for _, genre := range request.Genres {
		if stats, ok := n.reference.GenreAverages[genre]; ok {
			averages[genre] = stats
		}
	}

	requestJSON, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	keywordsJSON, err := json.Marshal(result.Scenario.TypeKeyword)
	if err != nil {
		return "", err
	}
	averagesJSON, err := json.Marshal(averages)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	err = n.prompt.Execute(&b, NarrativePromptValues{
		Request:       string(requestJSON),
		Prediction:    string(resultJSON),
		Keywords:      string(keywordsJSON),
		GenreAverages: string(averagesJSON),
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
