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
	register("directory", func() chroot.StorageFacet { return &Directory{} })
}

// Directory bind-mounts Path onto the session's mount-location and
// unmounts it on teardown. It supports session cloning: every session
// bind-mounts the same source directory independently, so cloning
// needs no identifier rewrite.
type Directory struct {
	Path string
}

func (d *Directory) Name() string { return "directory" }

func (d *Directory) Clone() chroot.Facet {
	clone := *d
	return &clone
}

func (d *Directory) SetupEnv(c *chroot.Chroot, env *util.Environment) {
	env.Set("SCHROOT_CHROOT_PATH", d.Path)
}

func (d *Directory) SessionFlags(c *chroot.Chroot) chroot.SessionFlags {
	return chroot.SessionCreate | chroot.SessionClone
}

func (d *Directory) UsedKeys() []string { return []string{"directory"} }

func (d *Directory) GetKeyfile(c *chroot.Chroot, section *keyfile.Section) {
	section.SetString("directory", d.Path)
}

func (d *Directory) SetKeyfile(c *chroot.Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("directory"); ok {
		d.Path = v
	}
	return nil
}

func (d *Directory) GetPath(c *chroot.Chroot) string { return d.Path }

func (d *Directory) Root(c *chroot.Chroot, mountLocation string) string { return mountLocation }

func (d *Directory) Acquire(c *chroot.Chroot, mountLocation string) (chroot.Release, error) {
	if err := bindMount(d.Path, mountLocation); err != nil {
		return nil, err
	}
	return func() error { return unmount(mountLocation) }, nil
}

func (d *Directory) CloneSession(c *chroot.Chroot, sessionID string) (chroot.Facet, error) {
	return &Directory{Path: d.Path}, nil
}
