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

// Package testutil provides shared helpers for test setup: pointing the
// configuration loader at the repository's configs directory and loading
// the test configuration once.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/storyzer/storyzer-api/internal/cloud"
)

var (
	config     *cloud.Config
	configOnce sync.Once
)

// SetupOS points the configuration loader at the repository's configs
// directory and selects the test runtime. Existing environment values are
// left alone so CI can point at a different directory.
func SetupOS() {
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		_ = os.Setenv(cloud.EnvConfigFilePrefix, configDir())
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		_ = os.Setenv(cloud.EnvConfigRuntime, "test")
	}
}

// GetConfig loads the test configuration once and returns the shared
// instance.
func GetConfig() *cloud.Config {
	configOnce.Do(func() {
		SetupOS()
		config = cloud.NewConfig()
		cloud.LoadConfig(config)
	})
	return config
}

// configDir resolves the repository's configs directory relative to this
// source file, so tests work from any package directory.
func configDir() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "configs")
}
