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
	"os/exec"
	"strings"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/lock"
	"github.com/basuotian/chroots/internal/util"
)

func init() {
	register("lvm-snapshot", func() chroot.StorageFacet { return &LVMSnapshot{} })
}

// LVMSnapshot creates an lvcreate(8) snapshot of SourceDevice named
// after the owning session, mounts it, and on release unmounts and
// lvremoves it. The source logical volume is locked for the duration,
// not the snapshot (which does not exist until Acquire runs).
type LVMSnapshot struct {
	SourceDevice string
	SnapshotName string
	SnapshotSize string
	FSType       string
	Options      string

	snapshotDevice string
}

func (s *LVMSnapshot) Name() string { return "lvm-snapshot" }

func (s *LVMSnapshot) Clone() chroot.Facet {
	clone := *s
	return &clone
}

func (s *LVMSnapshot) SetupEnv(c *chroot.Chroot, env *util.Environment) {
	env.Set("SCHROOT_CHROOT_PATH", s.SourceDevice)
	env.Set("SCHROOT_LVM_SNAPSHOT_NAME", s.SnapshotName)
	if s.snapshotDevice != "" {
		env.Set("SCHROOT_MOUNT_DEVICE", s.snapshotDevice)
	}
}

func (s *LVMSnapshot) SessionFlags(c *chroot.Chroot) chroot.SessionFlags {
	return chroot.SessionCreate | chroot.SessionClone | chroot.SessionSource
}

func (s *LVMSnapshot) UsedKeys() []string {
	return []string{"lvm-snapshot-device", "lvm-snapshot-name", "lvm-snapshot-options", "fstype", "mount-options"}
}

func (s *LVMSnapshot) GetKeyfile(c *chroot.Chroot, section *keyfile.Section) {
	section.SetString("lvm-snapshot-device", s.SourceDevice)
	if s.SnapshotName != "" {
		section.SetString("lvm-snapshot-name", s.SnapshotName)
	}
	if s.SnapshotSize != "" {
		section.SetString("lvm-snapshot-options", s.SnapshotSize)
	}
	if s.FSType != "" {
		section.SetString("fstype", s.FSType)
	}
	if s.Options != "" {
		section.SetString("mount-options", s.Options)
	}
}

func (s *LVMSnapshot) SetKeyfile(c *chroot.Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("lvm-snapshot-device"); ok {
		s.SourceDevice = v
	}
	if v, ok := section.GetString("lvm-snapshot-name"); ok {
		s.SnapshotName = v
	}
	if v, ok := section.GetString("lvm-snapshot-options"); ok {
		s.SnapshotSize = v
	}
	if v, ok := section.GetString("fstype"); ok {
		s.FSType = v
	}
	if v, ok := section.GetString("mount-options"); ok {
		s.Options = v
	}
	c.SetFacet(chroot.NewMountableFacet(s.FSType, s.Options))
	return nil
}

func (s *LVMSnapshot) GetPath(c *chroot.Chroot) string { return s.SourceDevice }

func (s *LVMSnapshot) Root(c *chroot.Chroot, mountLocation string) string { return mountLocation }

func (s *LVMSnapshot) Acquire(c *chroot.Chroot, mountLocation string) (chroot.Release, error) {
	l, err := lock.Acquire(context.Background(), s.SourceDevice, lock.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("acquiring lvm source lock: %w", err)
	}

	size := s.SnapshotSize
	if size == "" {
		size = "4G"
	}
	snapDevice, err := lvmCreateSnapshot(s.SourceDevice, s.SnapshotName, size)
	if err != nil {
		l.Release()
		return nil, err
	}
	s.snapshotDevice = snapDevice

	if err := mountFS(snapDevice, mountLocation, s.FSType, s.Options); err != nil {
		lvmRemove(snapDevice)
		l.Release()
		return nil, err
	}

	return func() error {
		uerr := unmount(mountLocation)
		rerr := lvmRemove(snapDevice)
		lerr := l.Release()
		if uerr != nil {
			return uerr
		}
		if rerr != nil {
			return rerr
		}
		return lerr
	}, nil
}

// CloneSession rewrites the snapshot name for a fresh session; the
// snapshot itself is created lazily by Acquire.
func (s *LVMSnapshot) CloneSession(c *chroot.Chroot, sessionID string) (chroot.Facet, error) {
	return &LVMSnapshot{
		SourceDevice: s.SourceDevice,
		SnapshotName: "chroots-" + sessionID,
		SnapshotSize: s.SnapshotSize,
		FSType:       s.FSType,
		Options:      s.Options,
	}, nil
}

// CloneSource returns a facet set mounting the origin logical volume
// directly (read-write), with no snapshot involved.
func (s *LVMSnapshot) CloneSource(c *chroot.Chroot) (chroot.Facet, error) {
	return &BlockDevice{Device: s.SourceDevice, FSType: s.FSType, Options: s.Options}, nil
}

func lvmCreateSnapshot(source, name, size string) (string, error) {
	if name == "" {
		name = "chroots-snapshot"
	}
	if err := exec.Command("lvcreate", "--snapshot", "--size", size, "--name", name, source).Run(); err != nil {
		return "", fmt.Errorf("lvcreate snapshot %s of %s: %w", name, source, err)
	}
	return lvmDevicePath(source, name), nil
}

func lvmRemove(device string) error {
	if device == "" {
		return nil
	}
	if err := exec.Command("lvremove", "--force", device).Run(); err != nil {
		return fmt.Errorf("lvremove %s: %w", device, err)
	}
	return nil
}

// lvmDevicePath derives the snapshot's device-mapper path from the
// source device's volume group, following lvcreate's own naming
// convention of /dev/<vg>/<lv>.
func lvmDevicePath(source, name string) string {
	vg := source
	if idx := strings.LastIndexByte(source, '/'); idx >= 0 {
		vg = source[:idx]
	}
	return vg + "/" + name
}
