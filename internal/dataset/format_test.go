// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/datakit/pkg/types"
)

func TestFormatDatasets(t *testing.T) {
	var b strings.Builder
	FormatDatasets(nil, &b)
	assert.Equal(t, "No datasets.\n", b.String())

	datasets := []*types.Dataset{
		{
			Identifier: "0a1b2c3d-0000-0000-0000-000000000000",
			Name:       "weather-obs",
			Created:    time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC),
			Authors:    []types.Author{{Name: "Ada Lovelace"}},
		},
	}

	b.Reset()
	FormatDatasets(datasets, &b)
	out := b.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "0a1b2c3d")
	assert.Contains(t, out, "weather-obs")
	assert.Contains(t, out, "2026-05-01 08:30:00")
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "1 dataset(s)")
}

func TestFormatFiles(t *testing.T) {
	var b strings.Builder
	FormatFiles(nil, &b)
	assert.Equal(t, "No files.\n", b.String())

	files := []types.FileRecord{
		{
			Path:    "obs/a.csv",
			Dataset: "weather-obs",
			Added:   time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
			Authors: []types.Author{{Name: "Ada Lovelace"}},
		},
	}

	b.Reset()
	FormatFiles(files, &b)
	out := b.String()
	assert.Contains(t, out, "ADDED")
	assert.Contains(t, out, "obs/a.csv")
	assert.Contains(t, out, "weather-obs")
	assert.Contains(t, out, "1 file(s)")
}

func TestFormatFilesJSON(t *testing.T) {
	files := []types.FileRecord{{Path: "a.csv", Dataset: "demo", Size: 3}}

	var b strings.Builder
	require.NoError(t, FormatFilesJSON(files, &b))

	var decoded []types.FileRecord
	require.NoError(t, json.Unmarshal([]byte(b.String()), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "a.csv", decoded[0].Path)
}
