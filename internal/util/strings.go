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
	"os/exec"
	"path/filepath"
	"strings"
)

// SplitString splits s on every occurrence of sep, discarding every
// empty field (leading, trailing, or between repeated separators) the
// way sbuild::split_string discards the empty component produced by a
// leading separator.
func SplitString(s, sep string) []string {
	if s == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, sep) {
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// JoinStrings concatenates items separated by sep.
func JoinStrings(items []string, sep string) string {
	return strings.Join(items, sep)
}

// FindProgramInPath searches each directory in path (a colon-separated
// list) for an executable named prog, returning the first match joined
// onto its directory, or "" if none is found. An empty path finds
// nothing; $PATH is not consulted.
func FindProgramInPath(prog, path, _ string) string {
	if path == "" {
		return ""
	}

	for _, dir := range strings.Split(path, ":") {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, prog)
		if isExecutable(candidate) {
			return candidate
		}
	}
	return ""
}

func isExecutable(path string) bool {
	_, err := exec.LookPath(path)
	return err == nil
}
