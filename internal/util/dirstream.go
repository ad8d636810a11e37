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

package util

import (
	"os"
	"sort"
)

// DirStream iterates the entries of a directory one at a time, the way
// sbuild::dirstream wraps readdir(3) as a stream rather than forcing
// every caller to buffer the full listing. Entries are yielded in
// sorted order, so callers get deterministic, lexicographic iteration
// without re-sorting themselves. (The run-parts runner and the config
// loader do not use it; they sort os.ReadDir results themselves.)
type DirStream struct {
	names []string
	pos   int
}

// OpenDirStream reads and sorts the entries of dir.
func OpenDirStream(dir string) (*DirStream, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)

	return &DirStream{names: names}, nil
}

// Next returns the next entry name and true, or "" and false once the
// stream is exhausted.
func (d *DirStream) Next() (string, bool) {
	if d.pos >= len(d.names) {
		return "", false
	}
	name := d.names[d.pos]
	d.pos++
	return name, true
}

// Reset rewinds the stream to the first entry.
func (d *DirStream) Reset() {
	d.pos = 0
}

// Len returns the total number of entries in the stream.
func (d *DirStream) Len() int {
	return len(d.names)
}
