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

// Package services implements the persistence-backed operations of the
// application: analysis result storage and listing, user accounts,
// authentication tokens, and outbound mail.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/storyzer/storyzer-api/internal/core/apperr"
	"github.com/storyzer/storyzer-api/internal/core/model"
)

// ResultPageSize is the fixed number of records per listing page.
const ResultPageSize = 10

// ResultService stores and lists analysis records.
type ResultService struct {
	db *gorm.DB
}

func NewResultService(db *gorm.DB) *ResultService {
	return &ResultService{db: db}
}

// Save persists a finished analysis record.
func (s *ResultService) Save(ctx context.Context, record *model.Analysis) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperr.Wrap(apperr.KindPersistence, "result storage", err, "failed to store the analysis record")
	}
	return nil
}

// ResultFilter narrows a listing. A nil UserID and empty Category apply no
// filter. Page numbers below one fall back to the first page.
type ResultFilter struct {
	UserID   *uint
	Category string
	Page     int
}

// ResultPage is one page of a listing. TotalResults counts all records
// matching the filters, before slicing; TotalPages is the ceiling of that
// count over the page size.
type ResultPage struct {
	Page         int              `json:"page"`
	TotalPages   int              `json:"totalPages"`
	TotalResults int64            `json:"totalResults"`
	Results      []model.Analysis `json:"results"`
}

// List returns the requested page of analysis records, oldest first.
func (s *ResultService) List(ctx context.Context, filter ResultFilter) (*ResultPage, error) {
	const stage = "result listing"

	page := filter.Page
	if page < 1 {
		page = 1
	}

	query := s.db.WithContext(ctx).Model(&model.Analysis{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, stage, err, "failed to count analysis records")
	}

	results := make([]model.Analysis, 0, ResultPageSize)
	err := query.
		Order("id").
		Offset((page - 1) * ResultPageSize).
		Limit(ResultPageSize).
		Find(&results).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, stage, err, "failed to load analysis records")
	}

	return &ResultPage{
		Page:         page,
		TotalPages:   int((total + ResultPageSize - 1) / ResultPageSize),
		TotalResults: total,
		Results:      results,
	}, nil
}
