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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/chroot/facet"
)

func newPlainChroot(t *testing.T, name string) *chroot.Chroot {
	t.Helper()
	storage, err := facet.New("plain")
	require.NoError(t, err)

	c := chroot.New(name)
	c.SetFacet(storage)
	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	c := newPlainChroot(t, "sid")
	c.Description = "test chroot"
	c.SetFacet(chroot.NewSessionFacet("abc123", "sid", "sid", "alice", false))

	require.NoError(t, save(dir, "abc123", c))

	loaded, err := load(dir, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "test chroot", loaded.Description)
	assert.True(t, loaded.IsSession())
}

func TestPurgeMissingIsNotError(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, purge(dir, "does-not-exist"))
}

func TestListSortsAndSkipsMissingDir(t *testing.T) {
	ids, err := list("/does/not/exist")
	require.NoError(t, err)
	assert.Empty(t, ids)

	dir := t.TempDir()
	require.NoError(t, save(dir, "b", newPlainChroot(t, "sid")))
	require.NoError(t, save(dir, "a", newPlainChroot(t, "sid")))

	ids, err = list(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
