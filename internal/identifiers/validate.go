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

// Package identifiers validates chroot names, aliases and session ids.
//
// Names must not begin with '.', ':', '/' or ',', and must not contain
// ':', '/' or ',' anywhere, so that every valid identifier is also safe
// to use as a keyfile section header and as a filesystem path component
// under the sessions directory.
package identifiers

import (
	"fmt"
	"regexp"

	"github.com/containerd/errdefs"
)

// nameRe matches the restricted grammar from the data model: no leading
// '.', ':', '/' or ',' and no embedded ':', '/' or ','.
var nameRe = regexp.MustCompile(`^[^:/,.][^:/,]*$`)

// Validate returns nil if s is a valid chroot/alias/session name.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("identifier must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	if !nameRe.MatchString(s) {
		return fmt.Errorf("identifier %q must match %v: %w", s, nameRe, errdefs.ErrInvalidArgument)
	}
	return nil
}

// ValidateSessionID checks the stricter grammar used for session
// identifiers: lowercase hex digits, with '-' also accepted (as in a
// dashed UUID), since it is generated internally
// rather than user-supplied and also used as-is for filesystem paths.
var sessionIDRe = regexp.MustCompile(`^[0-9a-f-]+$`)

// ValidateSessionID returns nil if s looks like a session id rendered
// by the engine's random-token generator.
func ValidateSessionID(s string) error {
	if s == "" || !sessionIDRe.MatchString(s) {
		return fmt.Errorf("invalid session identifier %q: %w", s, errdefs.ErrInvalidArgument)
	}
	return nil
}

// strictRe is a narrower grammar for identifiers that additionally
// have to serve as a single filesystem path
// component on its own (as opposed to chroot/alias names, which are
// only ever embedded inside a keyfile section header).
var strictRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateStrict returns nil if s matches the alphanumeric-leading
// path-safe grammar. No caller outside this package's tests uses it.
func ValidateStrict(s string) error {
	if !strictRe.MatchString(s) {
		return fmt.Errorf("identifier %q must match %v: %w", s, strictRe, errdefs.ErrInvalidArgument)
	}
	return nil
}
