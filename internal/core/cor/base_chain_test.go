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

package cor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyzer/storyzer-api/internal/core/cor"
)

// appendCommand appends its suffix to the string flowing through the
// chain, or fails.
type appendCommand struct {
	cor.BaseCommand
	suffix string
	fail   bool
	ran    bool
}

func newAppendCommand(name string, suffix string, fail bool) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix, fail: fail}
}

func (a *appendCommand) Execute(context cor.Context) {
	a.ran = true
	if a.fail {
		context.AddError(a.GetName(), errors.New("boom"))
		return
	}
	in := context.Get(a.GetInputParam()).(string)
	context.Add(a.GetOutputParam(), in+a.suffix)
}

func newTestContext(in string) cor.Context {
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chainCtx.Add(cor.CtxIn, in)
	return chainCtx
}

func TestChainPipesOutputToInput(t *testing.T) {
	chain := cor.NewBaseChain("test-chain")
	chain.AddCommand(newAppendCommand("first", "-a", false))
	chain.AddCommand(newAppendCommand("second", "-b", false))

	chainCtx := newTestContext("start")
	chain.Execute(chainCtx)

	require.False(t, chainCtx.HasErrors())
	assert.Equal(t, "start-a-b", chainCtx.Get(cor.CtxIn))
}

func TestChainStopsOnFirstError(t *testing.T) {
	first := newAppendCommand("first", "-a", false)
	failing := newAppendCommand("failing", "", true)
	last := newAppendCommand("last", "-c", false)

	chain := cor.NewBaseChain("test-chain")
	chain.AddCommand(first)
	chain.AddCommand(failing)
	chain.AddCommand(last)

	chainCtx := newTestContext("start")
	chain.Execute(chainCtx)

	require.True(t, chainCtx.HasErrors())
	assert.True(t, first.ran)
	assert.True(t, failing.ran)
	assert.False(t, last.ran)
	assert.Len(t, chainCtx.GetErrors(), 1)
}

func TestChainSkipsNonExecutableCommands(t *testing.T) {
	chain := cor.NewBaseChain("test-chain")
	chain.AddCommand(newAppendCommand("only", "-a", false))

	// No input value: the command's precondition fails and it never runs.
	chainCtx := cor.NewBaseContext()
	chainCtx.SetContext(context.Background())
	chain.Execute(chainCtx)

	assert.False(t, chainCtx.HasErrors())
	assert.Nil(t, chainCtx.Get(cor.CtxIn))
}
