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

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/chroot/facet"
)

func TestCommandDirectoryFirstExistingCandidateWins(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "home", "alice"), 0o755))

	var e Engine
	req := &Request{DirectoryCandidates: []string{"/nonexistent", "/home/alice", "/"}}
	assert.Equal(t, "/home/alice", e.commandDirectory(req, root))
}

func TestCommandDirectoryFallsBackToRoot(t *testing.T) {
	root := t.TempDir()

	var e Engine
	req := &Request{DirectoryCandidates: []string{"/nonexistent"}}
	assert.Equal(t, "/", e.commandDirectory(req, root))
}

func TestCommandDirectoryEmptyCandidatesFallBackToRoot(t *testing.T) {
	root := t.TempDir()

	var e Engine
	req := &Request{}
	assert.Equal(t, "/", e.commandDirectory(req, root))
}

func TestMountIsStaleForUnmountedPath(t *testing.T) {
	stale, err := mountIsStale(filepath.Join(t.TempDir(), "definitely-not-a-mountpoint"))
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestScriptEnvironmentSetsSpecNamedVariables(t *testing.T) {
	c := &chroot.Chroot{Name: "sid"}
	storage := &facet.Directory{Path: "/srv/chroots/sid"}
	req := &Request{RequestedUser: "builder"}

	env := scriptEnvironment(c, storage, "session-42", "/var/lib/chroots/mount/sid", req)

	assertEnv := func(name, want string) {
		got, ok := env.Get(name)
		assert.True(t, ok, "%s not set", name)
		assert.Equal(t, want, got)
	}
	assertEnv("CHROOT_NAME", "sid")
	assertEnv("CHROOT_TYPE", "directory")
	assertEnv("SESSION_ID", "session-42")
	assertEnv("MOUNT_LOCATION", "/var/lib/chroots/mount/sid")
	assertEnv("MOUNT_DEVICE", "/srv/chroots/sid")
	assertEnv("AUTH_USER", "builder")
}
