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
	"testing"

	"github.com/harryxbt/content-engine/internal/core/model"
	"github.com/harryxbt/content-engine/internal/core/services"
	"github.com/stretchr/testify/assert"
)

func existsIn(files ...string) func(string) bool {
	return func(path string) bool {
		for _, f := range files {
			if f == path {
				return true
			}
		}
		return false
	}
}

func TestResolveFontPrefersRequested(t *testing.T) {
	font := services.ResolveFont("/fonts/brand.ttf", []string{"/fonts/fallback.ttf"}, "", existsIn("/fonts/brand.ttf", "/fonts/fallback.ttf"))
	assert.Equal(t, model.FontRef{File: "/fonts/brand.ttf"}, font)
}

func TestResolveFontUsesFirstExistingFallback(t *testing.T) {
	fallbacks := []string{"/a.ttf", "/b.ttf", "/c.ttf"}
	font := services.ResolveFont("/missing.ttf", fallbacks, "", existsIn("/b.ttf", "/c.ttf"))
	assert.Equal(t, "/b.ttf", font.File)
	assert.True(t, font.IsFile())
}

func TestResolveFontGenericFamily(t *testing.T) {
	font := services.ResolveFont("/missing.ttf", services.DefaultFontFallbacks, "", existsIn())
	assert.Equal(t, model.FontRef{Family: services.GenericFontFamily}, font)
	assert.False(t, font.IsFile())

	font = services.ResolveFont("", nil, "Noto Sans", existsIn())
	assert.Equal(t, "Noto Sans", font.Family)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, services.FileExists(dir), "directories are not font files")
	assert.False(t, services.FileExists(dir+"/none.ttf"))
}
