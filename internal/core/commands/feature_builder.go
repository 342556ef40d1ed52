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

// FeatureBuilder turns a normalized request into the feature vector the
// regression endpoints consume: it embeds the title and one-hot encodes
// the genres against the fixed vocabulary.
type FeatureBuilder struct {
	cor.BaseCommand
	embedder  Embedder
	reference *model.ReferenceData
}

func NewFeatureBuilder(name string, embedder Embedder, reference *model.ReferenceData) *FeatureBuilder {
	return &FeatureBuilder{
		BaseCommand: *cor.NewBaseCommand(name),
		embedder:    embedder,
		reference:   reference,
	}
}

func (f *FeatureBuilder) Execute(context cor.Context) {
	ctx, span := f.GetTracer().Start(context.GetContext(), fmt.Sprintf("%s-execute", f.GetName()))
	defer span.End()

	request := context.Get(f.GetInputParam()).(*model.PredictionRequest)

	embedding, err := f.embedder.Embed(ctx, request.Title)
	if err != nil {
		context.AddError(f.GetName(), apperr.Wrap(apperr.KindUpstream, "title embedding", err, "title embedding failed"))
		f.GetErrorCounter().Add(ctx, 1)
		return
	}

	features := model.NewFeatureVector(request, embedding, f.reference.GenreVocabulary)
	context.Add(f.GetOutputParam(), features)
	f.GetSuccessCounter().Add(ctx, 1)
}
