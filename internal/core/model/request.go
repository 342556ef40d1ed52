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

// Package model defines the core data structures of the application. This
// file holds the transient prediction request submitted by a user. Budget
// and runtime arrive as strings on the wire, a contract of the existing
// client; Validate parses them into numbers immediately so the rest of the
// pipeline works with numeric values.
package model

import (
	"strconv"
	"strings"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
)

// PredictionRequest is one movie concept submitted for prediction. It lives
// only for the duration of a pipeline run; the persisted form is the raw
// JSON payload stored on the Analysis record.
type PredictionRequest struct {
	Title            string   `json:"title"`
	Scenario         string   `json:"scenario"`
	Budget           string   `json:"budget"`
	OriginalLanguage string   `json:"original_language"`
	Runtime          string   `json:"runtime"`
	Genres           []string `json:"genres"`

	// Parsed numeric forms, populated by Validate. The string fields above
	// are kept untouched so the persisted input matches what was submitted.
	BudgetValue  float64 `json:"-"`
	RuntimeValue int     `json:"-"`
}

// Validate checks that every required field is present and that the numeric
// fields parse. It must be called (and must pass) before any remote call is
// made on behalf of the request.
func (r *PredictionRequest) Validate() error {
	const stage = "validation"

	if strings.TrimSpace(r.Title) == "" {
		return apperr.New(apperr.KindValidation, stage, "title is required")
	}
	if strings.TrimSpace(r.Scenario) == "" {
		return apperr.New(apperr.KindValidation, stage, "scenario is required")
	}
	if strings.TrimSpace(r.OriginalLanguage) == "" {
		return apperr.New(apperr.KindValidation, stage, "original_language is required")
	}
	if r.Genres == nil {
		return apperr.New(apperr.KindValidation, stage, "genres is required")
	}

	budget, err := strconv.ParseFloat(strings.TrimSpace(r.Budget), 64)
	if err != nil {
		return apperr.New(apperr.KindValidation, stage, "budget must be a number, got %q", r.Budget)
	}
	if budget < 0 {
		return apperr.New(apperr.KindValidation, stage, "budget must not be negative")
	}

	runtime, err := strconv.Atoi(strings.TrimSpace(r.Runtime))
	if err != nil {
		return apperr.New(apperr.KindValidation, stage, "runtime must be an integer, got %q", r.Runtime)
	}
	if runtime <= 0 {
		return apperr.New(apperr.KindValidation, stage, "runtime must be positive")
	}

	r.BudgetValue = budget
	r.RuntimeValue = runtime
	return nil
}
