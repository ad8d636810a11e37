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

package chroot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/util"
)

// fakeStorage is a minimal StorageFacet + SessionClonableFacet +
// SourceClonableFacet used only to exercise Chroot's composition
// logic without dragging in a real storage implementation.
type fakeStorage struct {
	path    string
	cloned  string
	sourced bool
}

func (f *fakeStorage) Name() string { return "fake" }
func (f *fakeStorage) Clone() Facet {
	clone := *f
	return &clone
}
func (f *fakeStorage) SetupEnv(c *Chroot, env *util.Environment) {
	env.Set("SCHROOT_CHROOT_PATH", f.path)
}
func (f *fakeStorage) SessionFlags(c *Chroot) SessionFlags { return SessionCreate }
func (f *fakeStorage) UsedKeys() []string                  { return []string{"directory"} }
func (f *fakeStorage) GetKeyfile(c *Chroot, section *keyfile.Section) {
	section.SetString("directory", f.path)
}
func (f *fakeStorage) SetKeyfile(c *Chroot, section *keyfile.Section) error { return nil }
func (f *fakeStorage) GetPath(c *Chroot) string                             { return f.path }
func (f *fakeStorage) Acquire(c *Chroot, mountLocation string) (Release, error) {
	return func() error { return nil }, nil
}
func (f *fakeStorage) Root(c *Chroot, mountLocation string) string { return mountLocation }
func (f *fakeStorage) CloneSession(c *Chroot, sessionID string) (Facet, error) {
	return &fakeStorage{path: f.path, cloned: sessionID}, nil
}
func (f *fakeStorage) CloneSource(c *Chroot) (Facet, error) {
	return &fakeStorage{path: f.path, sourced: true}, nil
}

func newTestChroot() *Chroot {
	c := New("test")
	c.SetFacet(&fakeStorage{path: "/srv/chroot/test"})
	return c
}

func TestChrootStorageLookup(t *testing.T) {
	c := newTestChroot()
	sf, err := c.Storage()
	require.NoError(t, err)
	assert.Equal(t, "/srv/chroot/test", sf.GetPath(c))
}

func TestChrootStorageMissing(t *testing.T) {
	c := New("empty")
	_, err := c.Storage()
	assert.Error(t, err)
}

func TestChrootIsSession(t *testing.T) {
	c := newTestChroot()
	assert.False(t, c.IsSession())
	c.SetFacet(NewSessionFacet("abc123", "test", "test", "alice", false))
	assert.True(t, c.IsSession())
}

func TestChrootCloneSession(t *testing.T) {
	c := newTestChroot()
	session, err := c.CloneSession("abc123", "test", "alice", false)
	require.NoError(t, err)
	assert.True(t, session.IsSession())

	sf, err := session.Storage()
	require.NoError(t, err)
	fs := sf.(*fakeStorage)
	assert.Equal(t, "abc123", fs.cloned)

	sess := session.Facet(FacetSession).(*SessionFacet)
	assert.Equal(t, "test", sess.OriginalName)
	assert.Equal(t, "alice", sess.CloningUser)
}

func TestChrootCloneSource(t *testing.T) {
	c := newTestChroot()
	source, err := c.CloneSource()
	require.NoError(t, err)
	assert.Equal(t, "test-source", source.Name)
	assert.True(t, source.HasFacet(FacetSource))

	sf, err := source.Storage()
	require.NoError(t, err)
	assert.True(t, sf.(*fakeStorage).sourced)
}

func TestChrootSetupEnvAndKeyfile(t *testing.T) {
	c := newTestChroot()
	c.Description = "a test chroot"

	env := util.NewEnvironment(nil)
	c.SetupEnv(env)
	v, ok := env.Get("SCHROOT_CHROOT_PATH")
	require.True(t, ok)
	assert.Equal(t, "/srv/chroot/test", v)

	file := keyfile.New()
	c.GetKeyfile(file)
	sec := file.Section("test")
	desc, ok := sec.GetString("description")
	require.True(t, ok)
	assert.Equal(t, "a test chroot", desc)
	dir, ok := sec.GetString("directory")
	require.True(t, ok)
	assert.Equal(t, "/srv/chroot/test", dir)
}

func TestChrootCloneDeepCopiesSlices(t *testing.T) {
	c := newTestChroot()
	c.Groups = []string{"sbuild"}
	clone := c.Clone()
	clone.Groups[0] = "other"
	assert.Equal(t, "sbuild", c.Groups[0])
}
