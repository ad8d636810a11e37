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

// Package feature is a process-wide, append-only registry of
// compile-time capabilities. Only the PAM authentication backend and
// personality switching register themselves, from the build-tag-gated
// files that provide them. It is initialised once at startup and is
// read-mostly afterwards -- the same shape as the teacher's
// containerd/plugin registry, but advertising static booleans instead
// of constructing plugin instances.
package feature

import "sync"

var (
	mu       sync.RWMutex
	features = make(map[string]bool)
)

// Register advertises that the named feature is compiled into this
// binary. Intended to be called from package init() only.
func Register(name string) {
	mu.Lock()
	defer mu.Unlock()
	features[name] = true
}

// Has reports whether name was registered.
func Has(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return features[name]
}

// List returns every registered feature name.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(features))
	for name := range features {
		out = append(out, name)
	}
	return out
}

// Well-known feature names. PAM and Personality are registered by the
// auth and internal/personality packages; no package registers the
// others (the storage facets do not register features).
const (
	Lvmsnapshot   = "lvm-snapshot"
	Btrfsnapshot  = "btrfs-snapshot"
	Loopback      = "loopback"
	Union         = "union"
	Personality   = "personality"
	PAM           = "pam"
	BlockDevice   = "block-device"
)
