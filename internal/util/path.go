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

// Package util provides the small string, path and environment helpers
// used throughout the chroot launcher. They mirror the historical
// sbuild::basename/dirname/split_string family, reimplemented with
// POSIX basename(3)/dirname(3) semantics rather than path/filepath's
// (which collapse "/usr/" to "/usr" and so disagree on a handful of
// corner cases, e.g. dirname("/usr/") == "/" where filepath.Dir gives "/usr").
package util

import "strings"

// Basename returns the final path component of path, following POSIX
// basename(3) rules: a trailing slash is stripped before splitting, and
// "/" itself returns "/".
func Basename(path string) string {
	if path == "" {
		return "."
	}
	if path == "/" {
		return "/"
	}

	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}

	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

// Dirname returns the directory portion of path, following POSIX
// dirname(3) rules: "usr" (no separator) yields ".", and a trailing
// slash is stripped before splitting.
func Dirname(path string) string {
	if path == "" {
		return "."
	}
	if path == "/" {
		return "/"
	}

	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}

	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		return "."
	}
	if idx == 0 {
		return "/"
	}
	return trimmed[:idx]
}
