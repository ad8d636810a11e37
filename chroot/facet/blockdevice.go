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
	"context"
	"fmt"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/lock"
	"github.com/basuotian/chroots/internal/util"
)

func init() {
	register("block-device", func() chroot.StorageFacet { return &BlockDevice{} })
}

// BlockDevice mounts Device onto the session's mount-location, holding
// an advisory lock on the device node for the duration of the mount.
type BlockDevice struct {
	Device  string
	FSType  string
	Options string
}

func (b *BlockDevice) Name() string { return "block-device" }

func (b *BlockDevice) Clone() chroot.Facet {
	clone := *b
	return &clone
}

func (b *BlockDevice) SetupEnv(c *chroot.Chroot, env *util.Environment) {
	env.Set("SCHROOT_CHROOT_PATH", b.Device)
	env.Set("SCHROOT_MOUNT_DEVICE", b.Device)
}

func (b *BlockDevice) SessionFlags(c *chroot.Chroot) chroot.SessionFlags {
	return chroot.SessionCreate | chroot.SessionClone
}

func (b *BlockDevice) UsedKeys() []string {
	return []string{"device", "fstype", "mount-options"}
}

func (b *BlockDevice) GetKeyfile(c *chroot.Chroot, section *keyfile.Section) {
	section.SetString("device", b.Device)
	if b.FSType != "" {
		section.SetString("fstype", b.FSType)
	}
	if b.Options != "" {
		section.SetString("mount-options", b.Options)
	}
}

func (b *BlockDevice) SetKeyfile(c *chroot.Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("device"); ok {
		b.Device = v
	}
	if v, ok := section.GetString("fstype"); ok {
		b.FSType = v
	}
	if v, ok := section.GetString("mount-options"); ok {
		b.Options = v
	}
	c.SetFacet(chroot.NewMountableFacet(b.FSType, b.Options))
	return nil
}

func (b *BlockDevice) GetPath(c *chroot.Chroot) string { return b.Device }

func (b *BlockDevice) Root(c *chroot.Chroot, mountLocation string) string { return mountLocation }

func (b *BlockDevice) Acquire(c *chroot.Chroot, mountLocation string) (chroot.Release, error) {
	l, err := lock.Acquire(context.Background(), b.Device, lock.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("acquiring block device lock: %w", err)
	}

	if err := mountFS(b.Device, mountLocation, b.FSType, b.Options); err != nil {
		l.Release()
		return nil, err
	}

	return func() error {
		uerr := unmount(mountLocation)
		lerr := l.Release()
		if uerr != nil {
			return uerr
		}
		return lerr
	}, nil
}

func (b *BlockDevice) CloneSession(c *chroot.Chroot, sessionID string) (chroot.Facet, error) {
	return &BlockDevice{Device: b.Device, FSType: b.FSType, Options: b.Options}, nil
}
