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
	"fmt"
	"os/exec"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/util"
)

func init() {
	register("btrfs-snapshot", func() chroot.StorageFacet { return &BtrfsSnapshot{} })
}

// BtrfsSnapshot snapshots SourceSubvolume with `btrfs subvolume
// snapshot` directly at the session's mount-location (btrfs subvolumes
// are addressable in place, no separate mount(2) call is needed) and
// deletes the snapshot subvolume on release. Copy-on-write snapshots
// need no locking: concurrent snapshot creation from the same source
// is safe.
type BtrfsSnapshot struct {
	SourceSubvolume string
}

func (b *BtrfsSnapshot) Name() string { return "btrfs-snapshot" }

func (b *BtrfsSnapshot) Clone() chroot.Facet {
	clone := *b
	return &clone
}

func (b *BtrfsSnapshot) SetupEnv(c *chroot.Chroot, env *util.Environment) {
	env.Set("SCHROOT_CHROOT_PATH", b.SourceSubvolume)
}

func (b *BtrfsSnapshot) SessionFlags(c *chroot.Chroot) chroot.SessionFlags {
	return chroot.SessionCreate | chroot.SessionClone | chroot.SessionSource
}

func (b *BtrfsSnapshot) UsedKeys() []string {
	return []string{"btrfs-snapshot-directory"}
}

func (b *BtrfsSnapshot) GetKeyfile(c *chroot.Chroot, section *keyfile.Section) {
	section.SetString("btrfs-snapshot-directory", b.SourceSubvolume)
}

func (b *BtrfsSnapshot) SetKeyfile(c *chroot.Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("btrfs-snapshot-directory"); ok {
		b.SourceSubvolume = v
	}
	return nil
}

func (b *BtrfsSnapshot) GetPath(c *chroot.Chroot) string { return b.SourceSubvolume }

func (b *BtrfsSnapshot) Root(c *chroot.Chroot, mountLocation string) string { return mountLocation }

func (b *BtrfsSnapshot) Acquire(c *chroot.Chroot, mountLocation string) (chroot.Release, error) {
	if err := exec.Command("btrfs", "subvolume", "snapshot", b.SourceSubvolume, mountLocation).Run(); err != nil {
		return nil, fmt.Errorf("btrfs subvolume snapshot %s -> %s: %w", b.SourceSubvolume, mountLocation, err)
	}

	return func() error {
		if err := exec.Command("btrfs", "subvolume", "delete", mountLocation).Run(); err != nil {
			return fmt.Errorf("btrfs subvolume delete %s: %w", mountLocation, err)
		}
		return nil
	}, nil
}

func (b *BtrfsSnapshot) CloneSession(c *chroot.Chroot, sessionID string) (chroot.Facet, error) {
	return &BtrfsSnapshot{SourceSubvolume: b.SourceSubvolume}, nil
}

// CloneSource returns the source subvolume itself as a plain,
// directly-entered chroot: btrfs subvolumes need no further setup to
// be writable.
func (b *BtrfsSnapshot) CloneSource(c *chroot.Chroot) (chroot.Facet, error) {
	return &Plain{Directory: b.SourceSubvolume}, nil
}
