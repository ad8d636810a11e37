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

// FacetSource is the registry name of the source facet, marking a
// chroot as the writable source branch sibling of a snapshot-backed
// chroot (e.g. the "foo-source" counterpart of an LVM-snapshot "foo").
const FacetSource = "source"

// SourceFacet carries no state of its own; its presence is the signal
// that this chroot is a source branch and therefore exempt from the
// ordinary snapshot-session restrictions (it cannot itself be
// snapshotted again).
type SourceFacet struct{}

// NewSourceFacet returns a source facet.
func NewSourceFacet() *SourceFacet { return &SourceFacet{} }

func (f *SourceFacet) Name() string { return FacetSource }

func (f *SourceFacet) Clone() Facet { return &SourceFacet{} }

func (f *SourceFacet) SetupEnv(c *Chroot, env *util.Environment) {
	env.Set("SCHROOT_SOURCE_ROOT", "1")
}

func (f *SourceFacet) SessionFlags(c *Chroot) SessionFlags {
	return SessionNone
}

func (f *SourceFacet) UsedKeys() []string { return nil }

func (f *SourceFacet) GetKeyfile(c *Chroot, section *keyfile.Section) {}

func (f *SourceFacet) SetKeyfile(c *Chroot, section *keyfile.Section) error { return nil }
