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

package model

import (
	"time"

	"gorm.io/datatypes"
)

// User is a registered account. The password is stored only as a bcrypt
// hash; the token columns back email verification and password reset.
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Username     string     `gorm:"size:150;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:254;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	FirstName    string     `gorm:"size:150" json:"first_name"`
	LastName     string     `gorm:"size:150" json:"last_name"`
	Role         string     `gorm:"size:32;default:user" json:"role"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	IsVerified   bool       `gorm:"default:false" json:"is_verified"`
	VerifyToken  string     `gorm:"size:64;index" json:"-"`
	ResetToken   string     `gorm:"size:64;index" json:"-"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Analysis is one persisted prediction run: the raw request payload, the
// aggregated model outputs, the narrative text, and the winning scenario
// type rendered as a category label. UserID is nil for anonymous runs.
type Analysis struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	UserID    *uint          `gorm:"index" json:"user_id"`
	Input     datatypes.JSON `gorm:"type:json" json:"input"`
	Output    datatypes.JSON `gorm:"type:json" json:"output"`
	Analyze   string         `gorm:"type:text" json:"analyze"`
	Category  string         `gorm:"size:64;index" json:"category"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Analysis) TableName() string {
	return "analyses"
}
