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
	"bytes"
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
	register("loopback", func() chroot.StorageFacet { return &Loopback{} })
}

// Loopback attaches File to a free loop device with losetup(8), mounts
// the resulting device, and tears both down in reverse on release. The
// advisory lock is held on the backing file, not the loop device,
// since the device itself does not exist until Acquire runs.
type Loopback struct {
	File    string
	FSType  string
	Options string

	device string
}

func (l *Loopback) Name() string { return "loopback" }

func (l *Loopback) Clone() chroot.Facet {
	clone := *l
	clone.device = ""
	return &clone
}

func (l *Loopback) SetupEnv(c *chroot.Chroot, env *util.Environment) {
	env.Set("SCHROOT_CHROOT_PATH", l.File)
	if l.device != "" {
		env.Set("SCHROOT_MOUNT_DEVICE", l.device)
	}
}

func (l *Loopback) SessionFlags(c *chroot.Chroot) chroot.SessionFlags {
	return chroot.SessionCreate | chroot.SessionClone
}

func (l *Loopback) UsedKeys() []string {
	return []string{"file", "fstype", "mount-options"}
}

func (l *Loopback) GetKeyfile(c *chroot.Chroot, section *keyfile.Section) {
	section.SetString("file", l.File)
	if l.FSType != "" {
		section.SetString("fstype", l.FSType)
	}
	if l.Options != "" {
		section.SetString("mount-options", l.Options)
	}
	if l.device != "" {
		section.SetString("mount-device", l.device)
	}
}

func (l *Loopback) SetKeyfile(c *chroot.Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("file"); ok {
		l.File = v
	}
	if v, ok := section.GetString("fstype"); ok {
		l.FSType = v
	}
	if v, ok := section.GetString("mount-options"); ok {
		l.Options = v
	}
	if v, ok := section.GetString("mount-device"); ok {
		l.device = v
	}
	c.SetFacet(chroot.NewMountableFacet(l.FSType, l.Options))
	return nil
}

func (l *Loopback) GetPath(c *chroot.Chroot) string { return l.File }

func (l *Loopback) Root(c *chroot.Chroot, mountLocation string) string { return mountLocation }

func (l *Loopback) Acquire(c *chroot.Chroot, mountLocation string) (chroot.Release, error) {
	flock, err := lock.Acquire(context.Background(), l.File, lock.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("acquiring loopback file lock: %w", err)
	}

	device, err := losetupAttach(l.File)
	if err != nil {
		flock.Release()
		return nil, err
	}
	l.device = device

	if err := mountFS(device, mountLocation, l.FSType, l.Options); err != nil {
		losetupDetach(device)
		flock.Release()
		return nil, err
	}

	return func() error {
		uerr := unmount(mountLocation)
		derr := losetupDetach(device)
		lerr := flock.Release()
		if uerr != nil {
			return uerr
		}
		if derr != nil {
			return derr
		}
		return lerr
	}, nil
}

func (l *Loopback) CloneSession(c *chroot.Chroot, sessionID string) (chroot.Facet, error) {
	return &Loopback{File: l.File, FSType: l.FSType, Options: l.Options}, nil
}

func losetupAttach(file string) (string, error) {
	cmd := exec.Command("losetup", "-f", "--show", file)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("losetup %s: %w", file, err)
	}
	return strings.TrimSpace(out.String()), nil
}

func losetupDetach(device string) error {
	if device == "" {
		return nil
	}
	if err := exec.Command("losetup", "-d", device).Run(); err != nil {
		return fmt.Errorf("losetup -d %s: %w", device, err)
	}
	return nil
}
