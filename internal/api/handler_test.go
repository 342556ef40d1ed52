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

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/storyzer/storyzer-api/internal/api"
	"github.com/storyzer/storyzer-api/internal/cloud"
	"github.com/storyzer/storyzer-api/internal/core/model"
	"github.com/storyzer/storyzer-api/internal/core/services"
	"github.com/storyzer/storyzer-api/internal/core/workflow"
)

type cannedCompleter struct {
	reply string
}

func (c *cannedCompleter) Complete(_ context.Context, _ string) (string, error) {
	return c.reply, nil
}

type cannedEmbedder struct{}

func (cannedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type cannedPredictor struct{}

func (cannedPredictor) Predict(_ context.Context, endpoint string, _ []interface{}) ([]interface{}, error) {
	switch endpoint {
	case "classify":
		return []interface{}{map[string]interface{}{"confidences": []interface{}{0.9, 0.1}}}, nil
	case "revenue":
		return []interface{}{map[string]interface{}{"value": 8_000_000.0}}, nil
	default:
		return []interface{}{6.1}, nil
	}
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Analysis{}))

	results := services.NewResultService(db)
	users := services.NewUserService(db, &nullMailer{}, cloud.Mail{VerifyBaseURL: "http://localhost"})
	tokens := services.NewTokenService(cloud.Auth{Secret: "api-test-secret", TokenTTLMinutes: 5})

	prediction, err := workflow.NewPredictionWorkflow(
		workflow.PredictionProviders{
			LanguageDetector: &cannedCompleter{reply: "English"},
			Translator:       &cannedCompleter{reply: "unused"},
			Analyzer:         &cannedCompleter{reply: "Looks promising."},
			Embedder:         cannedEmbedder{},
			Predictor:        cannedPredictor{},
			Saver:            results,
		},
		workflow.PredictionEndpoints{Classification: "classify", Revenue: "revenue", Rating: "rating"},
		"{{.Request}} {{.Prediction}} {{.Keywords}} {{.GenreAverages}}",
		model.NewReferenceData(),
	)
	require.NoError(t, err)

	handler := api.NewHandler(prediction, results, users, tokens,
		&cannedCompleter{reply: "Hello world"}, &cannedCompleter{reply: "Sure."})

	router := gin.New()
	handler.RegisterRoutes(router)
	return &testServer{router: router, db: db}
}

type nullMailer struct{}

func (nullMailer) Send(_, _, _ string) error { return nil }

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) registerAndLogin(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/users/", "", gin.H{
		"username": "mira", "email": "mira@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/auth/login", "", gin.H{
		"username": "mira", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func predictionBody() gin.H {
	return gin.H{
		"title":             "The Last Harbor",
		"scenario":          "A retired sea captain takes one final voyage.",
		"budget":            "25000000",
		"original_language": "en",
		"runtime":           "112",
		"genres":            []string{"Drama"},
	}
}

func TestPredictionEndToEnd(t *testing.T) {
	server := newTestServer(t)
	token := server.registerAndLogin(t)

	rec := server.do(t, http.MethodPost, "/movie/prediction", token, predictionBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var response model.PredictionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 8_000_000.0, response.Output.Revenue)
	assert.Equal(t, 6.1, response.Output.VoteAverage)
	assert.Equal(t, 0, response.Output.Scenario.PredType)
	assert.Equal(t, "Looks promising.", response.Analyze)

	// The record is associated with the authenticated user.
	var records []model.Analysis
	require.NoError(t, server.db.Find(&records).Error)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].UserID)
}

func TestAnonymousPredictionHasNoOwner(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/movie/prediction", "", predictionBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var records []model.Analysis
	require.NoError(t, server.db.Find(&records).Error)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].UserID)
}

func TestPredictionValidationFailure(t *testing.T) {
	server := newTestServer(t)

	body := predictionBody()
	body["scenario"] = ""
	rec := server.do(t, http.MethodPost, "/movie/prediction", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ValidationError", response["kind"])
}

func TestResultListRequiresAuth(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodGet, "/result/list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResultListPagination(t *testing.T) {
	server := newTestServer(t)
	token := server.registerAndLogin(t)

	for i := 0; i < 12; i++ {
		rec := server.do(t, http.MethodPost, "/movie/prediction", token, predictionBody())
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := server.do(t, http.MethodGet, "/result/list?page=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page services.ResultPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, int64(12), page.TotalResults)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Results, 2)

	// A non-numeric page falls back to the first page.
	rec = server.do(t, http.MethodGet, "/result/list?page=abc", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Results, 10)
}

func TestResultListUserIDFilter(t *testing.T) {
	server := newTestServer(t)
	token := server.registerAndLogin(t)

	rec := server.do(t, http.MethodPost, "/movie/prediction", token, predictionBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var page services.ResultPage
	rec = server.do(t, http.MethodGet, "/result/list?user_id=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.TotalResults)

	rec = server.do(t, http.MethodGet, "/result/list?user_id=99", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(0), page.TotalResults)

	rec = server.do(t, http.MethodGet, "/result/list?user_id=nope", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserDetail(t *testing.T) {
	server := newTestServer(t)
	token := server.registerAndLogin(t)

	rec := server.do(t, http.MethodGet, "/users/detail", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "mira", user.Username)

	rec = server.do(t, http.MethodGet, "/users/detail", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTranslateEndpoint(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/chatgpt/translate/", "", gin.H{"text": "Hola mundo"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Hello world", body["result"])

	rec = server.do(t, http.MethodPost, "/chatgpt/translate/", "", gin.H{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
