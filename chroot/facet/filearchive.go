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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/opencontainers/go-digest"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/lock"
	"github.com/basuotian/chroots/internal/util"
)

func init() {
	register("file-archive", func() chroot.StorageFacet { return &FileArchive{} })
}

// FileArchive unpacks a gzipped tar archive into the session's
// mount-location on acquire, and on release either removes the
// extracted tree or, if Repack is set, tars it back up over the
// original archive before removing it. The archive file itself is
// advisory-locked for the duration, since repacking writes to it.
type FileArchive struct {
	Location string
	Repack   bool
	// Checksum, if set, is a digest string (e.g.
	// "sha256:abcd...") the archive file's raw bytes must match
	// before Acquire proceeds to extract it.
	Checksum string
}

func (a *FileArchive) Name() string { return "file-archive" }

func (a *FileArchive) Clone() chroot.Facet {
	clone := *a
	return &clone
}

func (a *FileArchive) SetupEnv(c *chroot.Chroot, env *util.Environment) {
	env.Set("SCHROOT_CHROOT_PATH", a.Location)
}

func (a *FileArchive) SessionFlags(c *chroot.Chroot) chroot.SessionFlags {
	return chroot.SessionCreate | chroot.SessionClone
}

func (a *FileArchive) UsedKeys() []string { return []string{"file", "file-repack", "checksum"} }

func (a *FileArchive) GetKeyfile(c *chroot.Chroot, section *keyfile.Section) {
	section.SetString("file", a.Location)
	section.SetBool("file-repack", a.Repack)
	if a.Checksum != "" {
		section.SetString("checksum", a.Checksum)
	}
}

func (a *FileArchive) SetKeyfile(c *chroot.Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("file"); ok {
		a.Location = v
	}
	if v, ok, err := section.GetBool("file-repack"); err != nil {
		return err
	} else if ok {
		a.Repack = v
	}
	if v, ok := section.GetString("checksum"); ok {
		if _, err := digest.Parse(v); err != nil {
			return fmt.Errorf("checksum %q: %w", v, err)
		}
		a.Checksum = v
	}
	return nil
}

func (a *FileArchive) GetPath(c *chroot.Chroot) string { return a.Location }

func (a *FileArchive) Root(c *chroot.Chroot, mountLocation string) string { return mountLocation }

func (a *FileArchive) Acquire(c *chroot.Chroot, mountLocation string) (chroot.Release, error) {
	l, err := lock.Acquire(context.Background(), a.Location, lock.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("acquiring archive lock: %w", err)
	}

	if a.Checksum != "" {
		if err := verifyChecksum(a.Location, a.Checksum); err != nil {
			l.Release()
			return nil, err
		}
	}

	if err := unpackArchive(a.Location, mountLocation); err != nil {
		l.Release()
		return nil, err
	}

	return func() error {
		var rerr error
		if a.Repack {
			rerr = repackArchive(mountLocation, a.Location)
		}
		if err := os.RemoveAll(mountLocation); err != nil && rerr == nil {
			rerr = err
		}
		if lerr := l.Release(); rerr == nil {
			rerr = lerr
		}
		return rerr
	}, nil
}

func (a *FileArchive) CloneSession(c *chroot.Chroot, sessionID string) (chroot.Facet, error) {
	return &FileArchive{Location: a.Location, Repack: a.Repack, Checksum: a.Checksum}, nil
}

// verifyChecksum hashes archivePath's raw bytes and compares the
// result against want (a "algorithm:hex" digest string), before the
// archive is trusted enough to unpack over a session's mount-location.
func verifyChecksum(archivePath, want string) error {
	d, err := digest.Parse(want)
	if err != nil {
		return fmt.Errorf("checksum %q: %w", want, err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer f.Close()

	verifier := d.Verifier()
	if _, err := io.Copy(verifier, f); err != nil {
		return fmt.Errorf("hashing archive %s: %w", archivePath, err)
	}
	if !verifier.Verified() {
		return fmt.Errorf("archive %s failed checksum verification against %s", archivePath, want)
	}
	return nil
}

func unpackArchive(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading gzip archive %s: %w", archivePath, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry in %s: %w", archivePath, err)
		}

		target := filepath.Join(dest, filepath.Clean(string(filepath.Separator)+hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(filepath.Separator)) && target != filepath.Clean(dest) {
			return fmt.Errorf("archive entry %q escapes destination", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

func repackArchive(src, archivePath string) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("creating archive %s: %w", archivePath, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			in, err := os.Open(path)
			if err != nil {
				return err
			}
			defer in.Close()
			if _, err := io.Copy(tw, in); err != nil {
				return err
			}
		}
		return nil
	})
}
