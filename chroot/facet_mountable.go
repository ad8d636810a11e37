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

package chroot

import (
	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/util"
)

// FacetMountable is the registry name of the mountable facet, composed
// onto a chroot by the storage facets whose Acquire step mounts a
// filesystem at the mount location (block-device, loopback and
// lvm-snapshot). The other storage kinds never compose it in.
const FacetMountable = "mountable"

// MountableFacet holds the filesystem-mount parameters shared by
// block-device, loopback and lvm-snapshot storage: the mount(8)
// filesystem type and options string.
type MountableFacet struct {
	FSType  string
	Options string
}

// NewMountableFacet returns a mountable facet with the given defaults.
func NewMountableFacet(fsType, options string) *MountableFacet {
	return &MountableFacet{FSType: fsType, Options: options}
}

func (f *MountableFacet) Name() string { return FacetMountable }

func (f *MountableFacet) Clone() Facet {
	clone := *f
	return &clone
}

func (f *MountableFacet) SetupEnv(c *Chroot, env *util.Environment) {
	if f.FSType != "" {
		env.Set("SCHROOT_MOUNT_TYPE", f.FSType)
	}
}

func (f *MountableFacet) SessionFlags(c *Chroot) SessionFlags { return SessionNone }

func (f *MountableFacet) UsedKeys() []string {
	return []string{"mount-options", "fstype"}
}

func (f *MountableFacet) GetKeyfile(c *Chroot, section *keyfile.Section) {
	if f.FSType != "" {
		section.SetString("fstype", f.FSType)
	}
	if f.Options != "" {
		section.SetString("mount-options", f.Options)
	}
}

func (f *MountableFacet) SetKeyfile(c *Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("fstype"); ok {
		f.FSType = v
	}
	if v, ok := section.GetString("mount-options"); ok {
		f.Options = v
	}
	return nil
}
