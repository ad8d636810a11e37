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
	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/util"
)

func init() {
	register("plain", func() chroot.StorageFacet { return &Plain{} })
}

// Plain chroots directly into Directory; it acquires nothing and
// releases nothing, and unlike every other storage kind it cannot be
// session-cloned (there is nothing storage-specific to isolate between
// sessions, so entering it twice just enters the same directory
// twice).
type Plain struct {
	Directory string
}

func (p *Plain) Name() string { return "plain" }

func (p *Plain) Clone() chroot.Facet {
	clone := *p
	return &clone
}

func (p *Plain) SetupEnv(c *chroot.Chroot, env *util.Environment) {
	env.Set("SCHROOT_CHROOT_PATH", p.Directory)
}

func (p *Plain) SessionFlags(c *chroot.Chroot) chroot.SessionFlags {
	return chroot.SessionNone
}

func (p *Plain) UsedKeys() []string { return []string{"directory"} }

func (p *Plain) GetKeyfile(c *chroot.Chroot, section *keyfile.Section) {
	section.SetString("directory", p.Directory)
}

func (p *Plain) SetKeyfile(c *chroot.Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("directory"); ok {
		p.Directory = v
	}
	return nil
}

func (p *Plain) GetPath(c *chroot.Chroot) string { return p.Directory }

// Acquire is a no-op: plain chroots into Directory directly, so
// mountLocation is never consulted.
func (p *Plain) Acquire(c *chroot.Chroot, mountLocation string) (chroot.Release, error) {
	return func() error { return nil }, nil
}

// Root ignores mountLocation: plain has no mount indirection.
func (p *Plain) Root(c *chroot.Chroot, mountLocation string) string { return p.Directory }
