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

// FacetFsunion is the registry name of the union facet: an optional
// add-on describing a writable overlay over a storage facet's mounted
// root. It carries the overlay parameters, serialises them and exports
// them to the setup environment; it mounts nothing itself, and the
// config loader does not attach it to a chroot.
const FacetFsunion = "fsunion"

// FsunionFacet holds the overlay-filesystem parameters. Type is the
// union filesystem driver name (e.g. "overlay", "aufs"); the two
// directories are host paths, not paths inside the chroot.
type FsunionFacet struct {
	Type             string
	OverlayDirectory string
	UnderlayDirectory string
	MountOptions     string
}

// NewFsunionFacet returns a union facet of the given driver type.
func NewFsunionFacet(fsType string) *FsunionFacet {
	return &FsunionFacet{Type: fsType}
}

func (f *FsunionFacet) Name() string { return FacetFsunion }

func (f *FsunionFacet) Clone() Facet {
	clone := *f
	return &clone
}

func (f *FsunionFacet) SetupEnv(c *Chroot, env *util.Environment) {
	if f.Type == "" {
		return
	}
	env.Set("SCHROOT_UNION_TYPE", f.Type)
	if f.OverlayDirectory != "" {
		env.Set("SCHROOT_UNION_OVERLAY_DIRECTORY", f.OverlayDirectory)
	}
	if f.UnderlayDirectory != "" {
		env.Set("SCHROOT_UNION_UNDERLAY_DIRECTORY", f.UnderlayDirectory)
	}
}

func (f *FsunionFacet) SessionFlags(c *Chroot) SessionFlags {
	if f.Type == "" {
		return SessionNone
	}
	return SessionClone
}

func (f *FsunionFacet) UsedKeys() []string {
	return []string{"union-type", "union-overlay-directory", "union-underlay-directory", "union-mount-options"}
}

func (f *FsunionFacet) GetKeyfile(c *Chroot, section *keyfile.Section) {
	if f.Type == "" {
		return
	}
	section.SetString("union-type", f.Type)
	if f.OverlayDirectory != "" {
		section.SetString("union-overlay-directory", f.OverlayDirectory)
	}
	if f.UnderlayDirectory != "" {
		section.SetString("union-underlay-directory", f.UnderlayDirectory)
	}
	if f.MountOptions != "" {
		section.SetString("union-mount-options", f.MountOptions)
	}
}

func (f *FsunionFacet) SetKeyfile(c *Chroot, section *keyfile.Section) error {
	if v, ok := section.GetString("union-type"); ok {
		f.Type = v
	}
	if v, ok := section.GetString("union-overlay-directory"); ok {
		f.OverlayDirectory = v
	}
	if v, ok := section.GetString("union-underlay-directory"); ok {
		f.UnderlayDirectory = v
	}
	if v, ok := section.GetString("union-mount-options"); ok {
		f.MountOptions = v
	}
	return nil
}

// CloneSession returns a detached copy of the union facet for a new
// session; overlay state is per-session so this is a plain clone.
func (f *FsunionFacet) CloneSession(c *Chroot, sessionID string) (Facet, error) {
	return f.Clone(), nil
}
