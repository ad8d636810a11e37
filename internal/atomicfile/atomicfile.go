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

// Package atomicfile writes a file by creating a sibling temporary
// file, writing the content, and renaming it over the destination so
// that concurrent readers never observe a torn write. This is the
// write side of the session keyfile persistence contract: a reader
// that opens the destination path either sees the old content or the
// complete new content, never a partial one.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// File is an in-progress atomic write to path. Call Close to commit
// (rename into place) or Cancel to discard.
type File struct {
	*os.File
	path string
	tmp  string
	done bool
}

// New creates a temporary file alongside path, ready to receive
// writes. The temporary file has the requested permission bits; the
// final rename preserves them.
func New(path string, perm os.FileMode) (*File, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file for atomic write to %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	return &File{File: tmp, path: path, tmp: tmp.Name()}, nil
}

// Close flushes and commits the write by renaming the temporary file
// over the destination path.
func (f *File) Close() error {
	if f.done {
		return nil
	}
	f.done = true

	if err := f.File.Sync(); err != nil {
		f.File.Close()
		os.Remove(f.tmp)
		return err
	}
	if err := f.File.Close(); err != nil {
		os.Remove(f.tmp)
		return err
	}
	if err := os.Rename(f.tmp, f.path); err != nil {
		os.Remove(f.tmp)
		return fmt.Errorf("renaming %s to %s: %w", f.tmp, f.path, err)
	}
	return nil
}

// Cancel discards the in-progress write, removing the temporary file
// without touching the destination.
func (f *File) Cancel() {
	if f.done {
		return
	}
	f.done = true
	f.File.Close()
	os.Remove(f.tmp)
}

// CreateExclusive creates path atomically, failing with os.ErrExist if
// it already exists. This backs the "uniqueness enforced by exclusive
// creation" requirement for new session-ids: at most one caller can
// win the O_CREAT|O_EXCL race for a given path.
func CreateExclusive(path string, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
}
