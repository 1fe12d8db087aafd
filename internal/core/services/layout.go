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
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/harryxbt/content-engine/internal/core/model"
)

// WrapCaption greedily packs the words of caption into lines of at most
// maxCharsPerLine characters. Words are separated by single spaces only and
// are never split, so a word longer than the budget sits alone on its line.
// An empty caption produces one empty line.
func WrapCaption(caption string, maxCharsPerLine int) []string {
	words := strings.Split(caption, " ")
	lines := make([]string, 0, 1)

	var current strings.Builder
	currentLen := 0
	started := false
	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if !started {
			current.WriteString(word)
			currentLen = wordLen
			started = true
			continue
		}
		if currentLen+1+wordLen <= maxCharsPerLine {
			current.WriteByte(' ')
			current.WriteString(word)
			currentLen += 1 + wordLen
			continue
		}
		lines = append(lines, current.String())
		current.Reset()
		current.WriteString(word)
		currentLen = wordLen
	}
	return append(lines, current.String())
}

// Layout wraps caption and vertically centers the resulting block of lines
// inside a banner of bannerHeight pixels. StartY is negative when the lines
// do not fit; the caller decides whether that is acceptable.
func Layout(caption string, maxCharsPerLine int, bannerHeight int, lineHeight int) (*model.CaptionLayout, error) {
	if maxCharsPerLine <= 0 {
		return nil, &LayoutError{Reason: fmt.Sprintf("max characters per line must be positive, got %d", maxCharsPerLine)}
	}
	if lineHeight <= 0 {
		return nil, &LayoutError{Reason: fmt.Sprintf("line height must be positive, got %d", lineHeight)}
	}
	lines := WrapCaption(caption, maxCharsPerLine)
	return &model.CaptionLayout{
		Lines:      lines,
		LineHeight: lineHeight,
		StartY:     (bannerHeight - len(lines)*lineHeight) / 2,
	}, nil
}
