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

// Package apperr defines the stable error kinds the API reports to callers.
// Every failure surfaced over HTTP carries one of these kinds plus a
// human-readable message; the underlying provider error stays wrapped inside
// for logs and never reaches the response body.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable tag identifying the class of a failure.
type Kind string

const (
	// KindValidation marks missing or malformed request fields. Requests
	// failing validation are rejected before any remote call is made.
	KindValidation Kind = "ValidationError"
	// KindUpstream marks a remote provider call that timed out, errored, or
	// returned an unparseable envelope.
	KindUpstream Kind = "UpstreamUnavailable"
	// KindNotFound marks a referenced user or record that does not exist.
	KindNotFound Kind = "NotFound"
	// KindInconsistency marks an internal invariant violation, such as a
	// classification index outside the static keyword table.
	KindInconsistency Kind = "InternalInconsistency"
	// KindUnauthenticated marks a request with no resolvable identity where
	// one is required.
	KindUnauthenticated Kind = "Unauthenticated"
	// KindPersistence marks a result-store write failure. It is distinct
	// from KindUpstream because the prediction itself succeeded.
	KindPersistence Kind = "PersistenceError"
)

// Error is a classified application error. Stage names the pipeline stage or
// component that failed, which is enough context to locate the failure
// without exposing provider internals.
type Error struct {
	Kind    Kind   // The stable error class.
	Stage   string // The component or pipeline stage that failed.
	Message string // Human-readable description, safe to return to callers.
	Err     error  // The wrapped cause, for logs only.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Stage, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message.
func New(kind Kind, stage string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The message is what callers see; err
// is retained for logging.
func Wrap(kind Kind, stage string, err error, message string) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain. Unclassified errors report
// as KindInconsistency so nothing maps to a success by accident.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInconsistency
}

// MessageOf extracts the caller-safe message from an error chain. For
// unclassified errors a generic message is returned instead of the raw error
// text, which could carry provider details.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

// HTTPStatus maps an error kind to its response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInconsistency, KindPersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
