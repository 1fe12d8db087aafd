// Copyright 2024 Google, LLC
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

package services_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harryxbt/content-engine/internal/core/services"
	"github.com/stretchr/testify/assert"
)

func TestOutputLocatorPathLayout(t *testing.T) {
	root := t.TempDir()
	locator := services.NewOutputLocator(root, "http://localhost:8080/")
	now := time.Date(2024, 3, 9, 17, 4, 0, 0, time.UTC)

	path := locator.NewPath("abc", "batch001", now)
	assert.Equal(t, filepath.Join(root, "2024-03-09", "batch001", "abc.mp4"), path)
	assert.Equal(t, "http://localhost:8080/output/2024-03-09/batch001/abc.mp4", locator.PublicURL(path))
}

func TestOutputLocatorGeneratesIdentifiers(t *testing.T) {
	locator := services.NewOutputLocator(t.TempDir(), "")
	now := time.Now()

	first := locator.NewPath("", "", now)
	second := locator.NewPath("", "", now)
	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Dir(first), filepath.Dir(second), "one batch per locator")
	assert.Len(t, filepath.Base(filepath.Dir(first)), 8)
	assert.True(t, strings.HasSuffix(first, services.OutputExtension))
	assert.Len(t, services.NewBatchID(), 8)
}

func TestOutputLocatorPublicURL(t *testing.T) {
	root := t.TempDir()
	locator := services.NewOutputLocator(root, "https://cdn.example.com")

	assert.Equal(t, "https://cdn.example.com/output/d/b/a%20b.mp4",
		locator.PublicURL(filepath.Join(root, "d", "b", "a b.mp4")))
	assert.Equal(t, "", locator.PublicURL(filepath.Join(filepath.Dir(root), "elsewhere.mp4")))
	assert.Equal(t, "", services.NewOutputLocator(root, "").PublicURL(filepath.Join(root, "x.mp4")))
}
