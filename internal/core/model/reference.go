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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// GenreStats holds the historical per-genre averages surfaced to the
// narrative model alongside a prediction.
type GenreStats struct {
	AvgRevenue     float64 `json:"avg_revenue"`
	AvgVoteAverage float64 `json:"avg_vote_average"`
}

// ReferenceData bundles the static lookup tables the pipeline depends on:
// the genre vocabulary that defines the one-hot feature columns, the
// per-scenario-type keyword frequency tables, and per-genre historical
// averages. The tables ship compiled in; a deployment can override any of
// them with JSON files named in the configuration.
type ReferenceData struct {
	// GenreVocabulary is the fixed, ordered list of genres the feature
	// vector has a column for. Order matters: it defines column order.
	GenreVocabulary []string

	// KeywordTable maps a scenario type index to its keyword frequency map.
	KeywordTable map[int]map[string]int

	// GenreAverages maps a genre name to its historical averages.
	GenreAverages map[string]GenreStats
}

// NewReferenceData returns the compiled-in defaults.
func NewReferenceData() *ReferenceData {
	return &ReferenceData{
		GenreVocabulary: defaultGenreVocabulary(),
		KeywordTable:    defaultKeywordTable(),
		GenreAverages:   defaultGenreAverages(),
	}
}

// Keywords returns the keyword table row for a scenario type. The second
// return value reports whether the type exists; callers must treat a
// missing row as an internal inconsistency, never invent one.
func (r *ReferenceData) Keywords(scenarioType int) (map[string]int, bool) {
	kw, ok := r.KeywordTable[scenarioType]
	return kw, ok
}

// LoadKeywordTable replaces the keyword table with the contents of a JSON
// file. The file maps type indexes (as JSON object keys, so strings) to
// keyword frequency maps.
func (r *ReferenceData) LoadKeywordTable(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reference: read keyword table: %w", err)
	}
	byName := make(map[string]map[string]int)
	if err := json.Unmarshal(raw, &byName); err != nil {
		return fmt.Errorf("reference: parse keyword table %s: %w", path, err)
	}
	table := make(map[int]map[string]int, len(byName))
	for key, kw := range byName {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("reference: keyword table key %q is not an index", key)
		}
		table[idx] = kw
	}
	r.KeywordTable = table
	return nil
}

// LoadGenreAverages replaces the genre averages with the contents of a
// JSON file mapping genre names to their stats.
func (r *ReferenceData) LoadGenreAverages(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reference: read genre averages: %w", err)
	}
	averages := make(map[string]GenreStats)
	if err := json.Unmarshal(raw, &averages); err != nil {
		return fmt.Errorf("reference: parse genre averages %s: %w", path, err)
	}
	r.GenreAverages = averages
	return nil
}

func defaultGenreVocabulary() []string {
	return []string{
		"Action",
		"Adventure",
		"Animation",
		"Comedy",
		"Crime",
		"Documentary",
		"Drama",
		"Family",
		"Fantasy",
		"History",
		"Horror",
		"Music",
		"Mystery",
		"Romance",
		"Science Fiction",
		"TV Movie",
		"Thriller",
		"War",
		"Western",
	}
}

func defaultKeywordTable() map[int]map[string]int {
	return map[int]map[string]int{
		0: {
			"love": 412, "relationship": 297, "family": 264, "marriage": 188,
			"friendship": 173, "loss": 141, "secret": 126, "betrayal": 104,
		},
		1: {
			"war": 356, "battle": 301, "soldier": 275, "mission": 243,
			"survival": 212, "escape": 187, "rescue": 152, "revenge": 139,
		},
		2: {
			"murder": 389, "investigation": 334, "detective": 290, "crime": 268,
			"conspiracy": 201, "heist": 164, "corruption": 133, "prison": 108,
		},
		3: {
			"space": 317, "future": 288, "technology": 251, "alien": 227,
			"time travel": 183, "dystopia": 157, "robot": 131, "experiment": 112,
		},
		4: {
			"magic": 302, "kingdom": 259, "quest": 236, "prophecy": 198,
			"creature": 171, "curse": 144, "legend": 121, "destiny": 97,
		},
		5: {
			"haunting": 341, "ghost": 296, "possession": 248, "ritual": 203,
			"isolation": 176, "madness": 149, "monster": 127, "nightmare": 103,
		},
	}
}

func defaultGenreAverages() map[string]GenreStats {
	return map[string]GenreStats{
		"Action":          {AvgRevenue: 154_800_000, AvgVoteAverage: 6.1},
		"Adventure":       {AvgRevenue: 189_300_000, AvgVoteAverage: 6.3},
		"Animation":       {AvgRevenue: 171_500_000, AvgVoteAverage: 6.7},
		"Comedy":          {AvgRevenue: 67_400_000, AvgVoteAverage: 6.0},
		"Crime":           {AvgRevenue: 52_100_000, AvgVoteAverage: 6.4},
		"Documentary":     {AvgRevenue: 4_300_000, AvgVoteAverage: 7.0},
		"Drama":           {AvgRevenue: 38_900_000, AvgVoteAverage: 6.6},
		"Family":          {AvgRevenue: 118_200_000, AvgVoteAverage: 6.2},
		"Fantasy":         {AvgRevenue: 146_700_000, AvgVoteAverage: 6.2},
		"History":         {AvgRevenue: 41_800_000, AvgVoteAverage: 6.8},
		"Horror":          {AvgRevenue: 44_600_000, AvgVoteAverage: 5.7},
		"Music":           {AvgRevenue: 49_500_000, AvgVoteAverage: 6.5},
		"Mystery":         {AvgRevenue: 55_300_000, AvgVoteAverage: 6.3},
		"Romance":         {AvgRevenue: 51_700_000, AvgVoteAverage: 6.3},
		"Science Fiction": {AvgRevenue: 163_900_000, AvgVoteAverage: 6.1},
		"TV Movie":        {AvgRevenue: 1_200_000, AvgVoteAverage: 6.0},
		"Thriller":        {AvgRevenue: 72_800_000, AvgVoteAverage: 6.1},
		"War":             {AvgRevenue: 58_400_000, AvgVoteAverage: 6.7},
		"Western":         {AvgRevenue: 33_100_000, AvgVoteAverage: 6.4},
	}
}
