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
	"encoding/json"
	"fmt"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/cor"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// ResultSaver persists a finished analysis record.
type ResultSaver interface {
	Save(ctx context.Context, record *model.Analysis) error
}

// ResultWriter assembles the Analysis record from the run's artifacts and
// persists it under the pipeline's category tag. The stored input is the
// request exactly as submitted, not the normalized form. Nothing is
// written once the request's context has been canceled.
type ResultWriter struct {
	cor.BaseCommand
	saver    ResultSaver
	category string
}

func NewResultWriter(name string, saver ResultSaver, category string) *ResultWriter {
	return &ResultWriter{
		BaseCommand: *cor.NewBaseCommand(name),
		saver:       saver,
		category:    category,
	}
}

func (w *ResultWriter) IsExecutable(context cor.Context) bool {
	return w.BaseCommand.IsExecutable(context) && context.Get(RawRequestParamName) != nil
}

func (w *ResultWriter) Execute(context cor.Context) {
	ctx, span := w.GetTracer().Start(context.GetContext(), fmt.Sprintf("%s-execute", w.GetName()))
	defer span.End()

	const stage = "persistence"

	result := context.Get(w.GetInputParam()).(*model.PredictionResult)
	request := context.Get(RawRequestParamName).(*model.PredictionRequest)

	narrative := ""
	if v, ok := context.Get(NarrativeParamName).(string); ok {
		narrative = v
	}
	var owner *uint
	if v, ok := context.Get(OwnerParamName).(*uint); ok {
		owner = v
	}

	if err := ctx.Err(); err != nil {
		context.AddError(w.GetName(), apperr.Wrap(apperr.KindPersistence, stage, err, "request canceled before the result was stored"))
		w.GetErrorCounter().Add(ctx, 1)
		return
	}

	inputJSON, err := json.Marshal(request)
	if err != nil {
		context.AddError(w.GetName(), apperr.Wrap(apperr.KindInconsistency, stage, err, "failed to encode request payload"))
		w.GetErrorCounter().Add(ctx, 1)
		return
	}
	outputJSON, err := json.Marshal(result)
	if err != nil {
		context.AddError(w.GetName(), apperr.Wrap(apperr.KindInconsistency, stage, err, "failed to encode prediction result"))
		w.GetErrorCounter().Add(ctx, 1)
		return
	}

	record := &model.Analysis{
		UserID:   owner,
		Input:    inputJSON,
		Output:   outputJSON,
		Analyze:  narrative,
		Category: w.category,
	}
	if err := w.saver.Save(ctx, record); err != nil {
		context.AddError(w.GetName(), apperr.Wrap(apperr.KindPersistence, stage, err, "failed to store the analysis record"))
		w.GetErrorCounter().Add(ctx, 1)
		return
	}

	context.Add(w.GetOutputParam(), record)
	w.GetSuccessCounter().Add(ctx, 1)
}
