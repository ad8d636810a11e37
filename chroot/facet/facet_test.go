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

package facet

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	digest "github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/internal/keyfile"
)

func TestRegistryKnowsEveryVariant(t *testing.T) {
	want := []string{
		"block-device", "btrfs-snapshot", "custom", "directory",
		"file-archive", "loopback", "lvm-snapshot", "plain",
	}
	assert.ElementsMatch(t, want, Types())
}

func TestNewUnknownType(t *testing.T) {
	_, err := New("does-not-exist")
	assert.Error(t, err)
}

func TestPlainRoundTrip(t *testing.T) {
	sf, err := New("plain")
	require.NoError(t, err)

	c := chroot.New("example")
	sec := keyfile.New().Section("example")
	sec.SetString("directory", "/srv/chroot/example")
	require.NoError(t, sf.SetKeyfile(c, sec))
	assert.Equal(t, "/srv/chroot/example", sf.GetPath(c))

	release, err := sf.Acquire(c, "/does/not/matter")
	require.NoError(t, err)
	require.NoError(t, release())
}

func TestPlainNotSessionClonable(t *testing.T) {
	sf, err := New("plain")
	require.NoError(t, err)
	_, ok := sf.(chroot.SessionClonableFacet)
	assert.False(t, ok)
}

func TestDirectorySessionClonable(t *testing.T) {
	sf, err := New("directory")
	require.NoError(t, err)
	sc, ok := sf.(chroot.SessionClonableFacet)
	require.True(t, ok)

	c := chroot.New("example")
	sec := keyfile.New().Section("example")
	sec.SetString("directory", "/srv/chroot/example")
	require.NoError(t, sf.SetKeyfile(c, sec))

	cloned, err := sc.CloneSession(c, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "/srv/chroot/example", cloned.(*Directory).Path)
}

func TestLVMSnapshotCloneSourceYieldsBlockDevice(t *testing.T) {
	sf, err := New("lvm-snapshot")
	require.NoError(t, err)
	lv := sf.(*LVMSnapshot)
	lv.SourceDevice = "/dev/vg0/base"
	lv.FSType = "ext4"

	c := chroot.New("example")
	source, err := lv.CloneSource(c)
	require.NoError(t, err)
	bd, ok := source.(*BlockDevice)
	require.True(t, ok)
	assert.Equal(t, "/dev/vg0/base", bd.Device)
}

func TestPlainRootIsItsOwnDirectory(t *testing.T) {
	sf, err := New("plain")
	require.NoError(t, err)
	p := sf.(*Plain)
	p.Directory = "/srv/chroot/example"

	c := chroot.New("example")
	assert.Equal(t, "/srv/chroot/example", p.Root(c, "/var/run/chroots/mount/example-deadbeef"))
}

func TestDirectoryRootIsMountLocation(t *testing.T) {
	sf, err := New("directory")
	require.NoError(t, err)
	d := sf.(*Directory)
	d.Path = "/srv/chroot/example"

	c := chroot.New("example")
	mountLocation := "/var/run/chroots/mount/example-deadbeef"
	assert.Equal(t, mountLocation, d.Root(c, mountLocation))
	assert.NotEqual(t, d.GetPath(c), d.Root(c, mountLocation))
}

func writeTestArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "archive.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestFileArchiveAcquireVerifiesChecksum(t *testing.T) {
	archivePath := writeTestArchive(t, map[string]string{"hello.txt": "hello world"})
	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)
	want := digest.FromBytes(data).String()

	sf, err := New("file-archive")
	require.NoError(t, err)
	a := sf.(*FileArchive)
	a.Location = archivePath
	a.Checksum = want

	c := chroot.New("example")
	dest := t.TempDir()
	release, err := a.Acquire(c, dest)
	require.NoError(t, err)
	t.Cleanup(func() { release() })

	contents, err := os.ReadFile(filepath.Join(dest, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(contents))
}

func TestFileArchiveAcquireRejectsChecksumMismatch(t *testing.T) {
	archivePath := writeTestArchive(t, map[string]string{"hello.txt": "hello world"})

	sf, err := New("file-archive")
	require.NoError(t, err)
	a := sf.(*FileArchive)
	a.Location = archivePath
	a.Checksum = digest.FromString("not the archive's content").String()

	c := chroot.New("example")
	_, err = a.Acquire(c, t.TempDir())
	assert.Error(t, err)
}

func TestDeviceAcquireFailsWithoutPrivilege(t *testing.T) {
	// mounting a device that holds no filesystem (/dev/null) must fail
	// cleanly rather than panicking or leaking a held lock.
	sf, err := New("block-device")
	require.NoError(t, err)
	bd := sf.(*BlockDevice)
	bd.Device = "/dev/null"
	bd.FSType = "ext4"

	c := chroot.New("example")
	_, err = bd.Acquire(c, t.TempDir())
	assert.Error(t, err)
}
