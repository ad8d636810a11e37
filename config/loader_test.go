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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/basuotian/chroots/chroot/facet"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDirectoryBasic(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sid.conf", `[sid]
type=directory
description=Debian sid
directory=/srv/chroot/sid
aliases=unstable, default
groups=sbuild
`)

	store, err := LoadDirectory(dir)
	require.NoError(t, err)

	c, ok := store.Chroot("sid")
	require.True(t, ok)
	assert.Equal(t, "Debian sid", c.Description)

	byAlias, ok := store.Chroot("unstable")
	require.True(t, ok)
	assert.Same(t, c, byAlias)
}

func TestLoadDirectoryDuplicateName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.conf", "[sid]\ntype=directory\ndirectory=/srv/chroot/sid\n")
	writeConfig(t, dir, "b.conf", "[sid]\ntype=directory\ndirectory=/srv/chroot/sid2\n")

	_, err := LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectoryAliasCollidesWithName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.conf", `[sid]
type=directory
directory=/srv/chroot/sid
aliases=trixie
`)
	writeConfig(t, dir, "b.conf", "[trixie]\ntype=directory\ndirectory=/srv/chroot/trixie\n")

	_, err := LoadDirectory(dir)
	assert.Error(t, err)
}

func TestBuildChrootMissingType(t *testing.T) {
	_, err := LoadFile(writeConfig(t, t.TempDir(), "x.conf", "[sid]\ndirectory=/srv/chroot/sid\n"))
	assert.Error(t, err)
}

func TestBuildChrootUnknownType(t *testing.T) {
	_, err := LoadFile(writeConfig(t, t.TempDir(), "x.conf", "[sid]\ntype=made-up\n"))
	assert.Error(t, err)
}
