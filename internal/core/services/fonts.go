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

package services

import (
	"os"
	"strings"

	"github.com/harryxbt/content-engine/internal/core/model"
)

// GenericFontFamily is handed to the text renderer when no font file exists.
const GenericFontFamily = "Sans"

// DefaultFontFallbacks lists common system fonts, consulted in order.
var DefaultFontFallbacks = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/Library/Fonts/Arial.ttf",
	`C:\Windows\Fonts\arial.ttf`,
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ResolveFont returns the first existing file among requested and fallbacks,
// or the generic family when none exist. It never fails.
func ResolveFont(requested string, fallbacks []string, family string, exists func(string) bool) model.FontRef {
	if exists == nil {
		exists = FileExists
	}
	if len(strings.TrimSpace(family)) == 0 {
		family = GenericFontFamily
	}
	candidates := make([]string, 0, len(fallbacks)+1)
	if requested = strings.TrimSpace(requested); len(requested) > 0 {
		candidates = append(candidates, requested)
	}
	candidates = append(candidates, fallbacks...)
	for _, candidate := range candidates {
		if exists(candidate) {
			return model.FontRef{File: candidate}
		}
	}
	return model.FontRef{Family: family}
}
