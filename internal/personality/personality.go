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

// Package personality describes the execution domain (Linux
// personality(2)) a chroot may request, e.g. "linux32" to run a 32-bit
// userland on a 64-bit kernel.
package personality

import "fmt"

// Persona identifies a named execution domain.
type Persona struct {
	Name string
}

// known maps the configuration-facing persona names to the
// personality(2) PER_* constant each represents.
var known = map[string]uintptr{
	"linux":   0x0000,
	"linux32": 0x0008,
}

// Resolve validates name against the set of known personas and
// returns the Persona descriptor.
func Resolve(name string) (Persona, error) {
	if name == "" {
		return Persona{}, nil
	}
	if _, ok := known[name]; !ok {
		return Persona{}, fmt.Errorf("unknown personality %q", name)
	}
	return Persona{Name: name}, nil
}

// Value returns the personality(2) domain value for p, and whether p
// names a known persona to set (false when p is unset; true for
// "linux" as well, although that is the kernel's default domain).
func (p Persona) Value() (uintptr, bool) {
	if p.Name == "" {
		return 0, false
	}
	v, ok := known[p.Name]
	return v, ok
}

// String renders the persona name, or "undefined" if unset, matching
// the original implementation's default rendering for --info output.
func (p Persona) String() string {
	if p.Name == "" {
		return "undefined"
	}
	return p.Name
}
