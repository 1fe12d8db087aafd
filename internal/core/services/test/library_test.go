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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harryxbt/content-engine/internal/core/services"
	test "github.com/harryxbt/content-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryResolve(t *testing.T) {
	root := t.TempDir()
	clip := test.WriteSampleVideo(t, filepath.Join(root, "office.mp4"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.mp4"), []byte("definitely not a video, just some text"), 0o644))
	library := services.NewLibrary(root)

	path, err := library.Resolve("office")
	require.NoError(t, err)
	assert.Equal(t, clip, path)

	_, err = library.Resolve("missing")
	assert.True(t, errors.Is(err, services.ErrVideoNotFound))

	_, err = library.Resolve("notes")
	assert.True(t, errors.Is(err, services.ErrNotVideo))

	for _, name := range []string{"", "../office", `a\b`, ".hidden"} {
		_, err = library.Resolve(name)
		assert.True(t, errors.Is(err, services.ErrInvalidRequest), "scenario %q", name)
	}
}

func TestLibraryScenarios(t *testing.T) {
	root := t.TempDir()
	test.WriteSampleVideo(t, filepath.Join(root, "zoo.mp4"))
	test.WriteSampleVideo(t, filepath.Join(root, "airport.mp4"))
	test.WriteSampleVideo(t, filepath.Join(root, "nested", "skip.mp4"))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0o644))

	names, err := services.NewLibrary(root).Scenarios()
	require.NoError(t, err)
	assert.Equal(t, []string{"airport", "zoo"}, names)

	_, err = services.NewLibrary(filepath.Join(root, "absent")).Scenarios()
	assert.Error(t, err)
}
