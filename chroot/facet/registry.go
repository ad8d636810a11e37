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

// Package facet implements the storage facet variants (plain,
// directory, file-archive, block-device, loopback, lvm-snapshot,
// btrfs-snapshot, custom) and the factory that the configuration
// loader uses to build the right one from a keyfile's "type" key.
package facet

import (
	"fmt"
	"sort"
	"sync"

	"github.com/containerd/plugin"
	"github.com/containerd/plugin/registry"

	"github.com/basuotian/chroots/chroot"
)

// PluginType is the containerd/plugin registration type every storage
// facet constructor is registered under, so the facet set is visible
// to anything walking the process's plugin registry for introspection
// or diagnostics, the same way containerd's own snapshotter and
// service plugins are.
const PluginType plugin.Type = "io.chroots.storage"

// Constructor builds a fresh, zero-valued instance of one storage
// facet variant, ready to have its keys populated by SetKeyfile.
type Constructor func() chroot.StorageFacet

var (
	mu           sync.RWMutex
	constructors = make(map[string]Constructor)
)

// register records ctor under name in both the process-wide
// containerd/plugin registry (for discoverability) and this package's
// own dispatch table (used by New, since the registry package does
// not expose a lookup-by-type-and-id accessor in the version this
// module depends on).
func register(name string, ctor Constructor) {
	registry.Register(&plugin.Registration{
		ID:   name,
		Type: PluginType,
		InitFn: func(ic *plugin.InitContext) (interface{}, error) {
			return ctor(), nil
		},
	})

	mu.Lock()
	defer mu.Unlock()
	constructors[name] = ctor
}

// New constructs a fresh, empty storage facet of the named variant.
func New(name string) (chroot.StorageFacet, error) {
	mu.RLock()
	ctor, ok := constructors[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown chroot type %q", name)
	}
	return ctor(), nil
}

// Types returns every registered storage facet variant name, sorted.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(constructors))
	for name := range constructors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
