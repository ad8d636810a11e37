/*
   Copyright The containerd Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package runparts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basuotian/chroots/internal/util"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
}

func TestRunMissingDirectoryIsNotError(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "does-not-exist"))
	err := r.Run(context.Background(), SetupStart, util.NewEnvironment(nil))
	assert.NoError(t, err)
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "10-ok", "#!/bin/sh\nexit 0\n")
	writeScript(t, dir, "20-fail", "#!/bin/sh\nexit 1\n")
	writeScript(t, dir, "30-never-runs", "#!/bin/sh\ntouch "+filepath.Join(dir, "ran")+"\n")

	r := New(dir)
	err := r.Run(context.Background(), SetupStart, util.NewEnvironment(nil))
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "ran"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunSkipsNonExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "10-data")
	require.NoError(t, os.WriteFile(path, []byte("not a script"), 0o644))

	r := New(dir)
	err := r.Run(context.Background(), SetupStart, util.NewEnvironment(nil))
	assert.NoError(t, err)
}

func TestRunSkipsNamesWithDisallowedCharacters(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "10-setup~", "#!/bin/sh\ntouch "+filepath.Join(dir, "ran")+"\n")

	r := New(dir)
	err := r.Run(context.Background(), SetupStart, util.NewEnvironment(nil))
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "ran"))
	assert.True(t, os.IsNotExist(statErr), "a backup-style name with '~' must be skipped, not executed")
}
