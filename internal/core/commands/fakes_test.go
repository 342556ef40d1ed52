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
	"context"
	"sync"

	"github.com/storyzer/storyzer-api/internal/core/cor"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// fakeCompleter returns canned replies in order and counts calls.
type fakeCompleter struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeCompleter) Complete(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
	}
	return reply, nil
}

// fakeEmbedder returns a fixed vector.
type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// fakePredictor returns per-endpoint canned predictions or errors. It is
// safe for concurrent use since the regressions call it from two
// goroutines.
type fakePredictor struct {
	mu          sync.Mutex
	predictions map[string][]interface{}
	errs        map[string]error
	calls       map[string]int
	instances   map[string][]interface{}
}

func newFakePredictor() *fakePredictor {
	return &fakePredictor{
		predictions: make(map[string][]interface{}),
		errs:        make(map[string]error),
		calls:       make(map[string]int),
		instances:   make(map[string][]interface{}),
	}
}

func (f *fakePredictor) Predict(_ context.Context, endpoint string, instances []interface{}) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[endpoint]++
	f.instances[endpoint] = instances
	if err := f.errs[endpoint]; err != nil {
		return nil, err
	}
	return f.predictions[endpoint], nil
}

func (f *fakePredictor) callCount(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// fakeSaver records saved analyses and assigns ids.
type fakeSaver struct {
	saved []*model.Analysis
	err   error
}

func (f *fakeSaver) Save(_ context.Context, record *model.Analysis) error {
	if f.err != nil {
		return f.err
	}
	record.ID = uint(len(f.saved) + 1)
	f.saved = append(f.saved, record)
	return nil
}

// newChainContext builds a chain context with a background Go context.
func newChainContext() cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	return chainCtx
}
