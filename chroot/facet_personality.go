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
	"github.com/basuotian/chroots/internal/personality"
	"github.com/basuotian/chroots/internal/util"
)

// FacetPersonality is the registry name of the personality facet.
const FacetPersonality = "personality"

// PersonalityFacet exposes the chroot's execution-domain selection
// (set via personality(2) before the chrooted command runs) as its own
// facet, independently of the envelope's Persona field being the
// source of truth: the facet is what the session engine and the
// keyfile serialiser actually drive through.
type PersonalityFacet struct{}

// NewPersonalityFacet returns a personality facet. The persona value
// itself lives on the owning Chroot's Persona field; the facet exists
// to give it UsedKeys/GetKeyfile/SetKeyfile/SetupEnv wiring consistent
// with every other capability.
func NewPersonalityFacet() *PersonalityFacet { return &PersonalityFacet{} }

func (f *PersonalityFacet) Name() string { return FacetPersonality }

func (f *PersonalityFacet) Clone() Facet { return &PersonalityFacet{} }

func (f *PersonalityFacet) SetupEnv(c *Chroot, env *util.Environment) {
	if c.Persona.Name != "" {
		env.Set("SCHROOT_PERSONALITY", c.Persona.Name)
	}
}

func (f *PersonalityFacet) SessionFlags(c *Chroot) SessionFlags { return SessionNone }

func (f *PersonalityFacet) UsedKeys() []string { return []string{"personality"} }

func (f *PersonalityFacet) GetKeyfile(c *Chroot, section *keyfile.Section) {
	if c.Persona.Name != "" {
		section.SetString("personality", c.Persona.Name)
	}
}

func (f *PersonalityFacet) SetKeyfile(c *Chroot, section *keyfile.Section) error {
	v, ok := section.GetString("personality")
	if !ok || v == "" {
		return nil
	}
	p, err := personality.Resolve(v)
	if err != nil {
		return err
	}
	c.Persona = p
	return nil
}
