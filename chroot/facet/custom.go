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
	register("custom", func() chroot.StorageFacet { return &Custom{} })
}

// Custom has no built-in acquire/release behaviour of its own: every
// setup and teardown step is delegated to the chroot's setup scripts,
// which receive CHROOT_MOUNT_LOCATION and the rest of the standard
// script environment and are solely responsible for making the root
// visible there and cleaning it up again.
type Custom struct {
	Path string
}

func (cu *Custom) Name() string { return "custom" }

func (cu *Custom) Clone() chroot.Facet {
	clone := *cu
	return &clone
}

func (cu *Custom) SetupEnv(c *chroot.Chroot, env *util.Environment) {
	if cu.Path != "" {
		env.Set("SCHROOT_CHROOT_PATH", cu.Path)
	}
}

func (cu *Custom) SessionFlags(c *chroot.Chroot) chroot.SessionFlags {
	return chroot.SessionCreate | chroot.SessionClone
}

func (cu *Custom) UsedKeys() []string { return []string{"directory"} }

func (cu *Custom) GetKeyfile(c *chroot.Chroot, section *keyfile.Section) {
	if cu.Path != "" {
		section.SetString("directory", cu.Path)
	}
}

func (cu *Custom) SetKeyfile(c *chroot.Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("directory"); ok {
		cu.Path = v
	}
	return nil
}

func (cu *Custom) GetPath(c *chroot.Chroot) string { return cu.Path }

func (cu *Custom) Root(c *chroot.Chroot, mountLocation string) string { return mountLocation }

// Acquire does nothing; the engine's setup-start scripts are expected
// to perform whatever this custom chroot needs, and setup-stop scripts
// to reverse it.
func (cu *Custom) Acquire(c *chroot.Chroot, mountLocation string) (chroot.Release, error) {
	return func() error { return nil }, nil
}

func (cu *Custom) CloneSession(c *chroot.Chroot, sessionID string) (chroot.Facet, error) {
	return &Custom{Path: cu.Path}, nil
}
