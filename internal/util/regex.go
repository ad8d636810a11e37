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

import "regexp"

// Regex wraps regexp.Regexp so keyfile values round-trip through
// String() the way sbuild::regex serialises back to its source pattern
// (Go's regexp.Regexp.String() already returns the original source, but
// this wrapper gives the keyfile layer a single type to marshal/compile
// against and a place to report malformed patterns with keyfile context).
type Regex struct {
	source string
	re     *regexp.Regexp
}

// CompileRegex parses pattern, returning an error if it is not a valid
// RE2 expression.
func CompileRegex(pattern string) (*Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Regex{source: pattern, re: re}, nil
}

// MatchString reports whether s matches the compiled pattern.
func (r *Regex) MatchString(s string) bool {
	if r == nil || r.re == nil {
		return true
	}
	return r.re.MatchString(s)
}

// String returns the original pattern text.
func (r *Regex) String() string {
	if r == nil {
		return ""
	}
	return r.source
}

// Compiled exposes the underlying regexp.Regexp for callers (such as
// Environment.Filter) that need it directly.
func (r *Regex) Compiled() *regexp.Regexp {
	if r == nil {
		return nil
	}
	return r.re
}
