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
	"fmt"
	"regexp"

	"github.com/containerd/errdefs"

	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/personality"
	"github.com/basuotian/chroots/internal/util"
)

// Chroot is the envelope: identity and shared policy. Every piece of
// typed behaviour is contributed by the facets attached to it.
type Chroot struct {
	Name        string
	Description string
	Aliases     []string

	Groups          []string
	RootGroups      []string
	Users           []string
	RootUsers       []string
	AllowUserSwitch bool

	CommandPrefix  []string
	ScriptConfig   string
	SELinuxContext string
	Persona        personality.Persona
	ScriptsEnabled bool
	DefaultCommand []string
	MountLocation  string

	environmentFilter *util.Regex

	facets map[string]Facet
}

// New returns an empty chroot envelope named name, with setup scripts
// enabled by default (the teacher's facets opt out, they don't opt
// in -- matching the original implementation's default).
func New(name string) *Chroot {
	return &Chroot{
		Name:           name,
		ScriptsEnabled: true,
		facets:         make(map[string]Facet),
	}
}

// EnvironmentFilter returns the compiled environment-filter regex, or
// nil if none was configured (meaning no filtering is applied).
func (c *Chroot) EnvironmentFilter() *regexp.Regexp {
	if c.environmentFilter == nil {
		return nil
	}
	return c.environmentFilter.Compiled()
}

// SetEnvironmentFilter compiles and stores pattern as the
// environment-filter regex.
func (c *Chroot) SetEnvironmentFilter(pattern string) error {
	if pattern == "" {
		c.environmentFilter = nil
		return nil
	}
	re, err := util.CompileRegex(pattern)
	if err != nil {
		return fmt.Errorf("invalid environment-filter: %w", err)
	}
	c.environmentFilter = re
	return nil
}

// SetFacet attaches f to the chroot, replacing any existing facet of
// the same name.
func (c *Chroot) SetFacet(f Facet) {
	c.facets[f.Name()] = f
}

// RemoveFacet detaches the named facet, if present.
func (c *Chroot) RemoveFacet(name string) {
	delete(c.facets, name)
}

// Facet returns the named facet, or nil if not attached.
func (c *Chroot) Facet(name string) Facet {
	return c.facets[name]
}

// HasFacet reports whether the named facet is attached.
func (c *Chroot) HasFacet(name string) bool {
	_, ok := c.facets[name]
	return ok
}

// Facets returns every attached facet.
func (c *Chroot) Facets() []Facet {
	out := make([]Facet, 0, len(c.facets))
	for _, f := range c.facets {
		out = append(out, f)
	}
	return out
}

// Storage returns the chroot's one storage facet. Every valid chroot
// has exactly one; this is an invariant enforced at config-validate
// time, not here.
func (c *Chroot) Storage() (StorageFacet, error) {
	for _, f := range c.facets {
		if sf, ok := f.(StorageFacet); ok {
			return sf, nil
		}
	}
	return nil, fmt.Errorf("chroot %q has no storage facet: %w", c.Name, errdefs.ErrFailedPrecondition)
}

// IsSession reports whether this chroot is a live session (has a
// "session" facet attached).
func (c *Chroot) IsSession() bool {
	return c.HasFacet(FacetSession)
}

// Clone returns a deep copy of the chroot preserving identity (name,
// aliases, policy) and cloning every attached facet.
func (c *Chroot) Clone() *Chroot {
	out := *c
	out.facets = make(map[string]Facet, len(c.facets))
	for fname, f := range c.facets {
		out.facets[fname] = f.Clone()
	}
	out.Groups = append([]string(nil), c.Groups...)
	out.RootGroups = append([]string(nil), c.RootGroups...)
	out.Users = append([]string(nil), c.Users...)
	out.RootUsers = append([]string(nil), c.RootUsers...)
	out.Aliases = append([]string(nil), c.Aliases...)
	out.CommandPrefix = append([]string(nil), c.CommandPrefix...)
	out.DefaultCommand = append([]string(nil), c.DefaultCommand...)
	return &out
}

// CloneSession produces a running-session instance of c: a deep copy
// with a fresh "session" facet attached, and every session-clonable
// storage facet given a chance to rewrite its storage-specific
// identifiers for the new session. Calling this on a chroot whose
// storage facet does not implement SessionClonableFacet is
// BAD_OPERATION.
func (c *Chroot) CloneSession(sessionID, alias, user string, root bool) (*Chroot, error) {
	storage, err := c.Storage()
	if err != nil {
		return nil, err
	}
	sc, ok := storage.(SessionClonableFacet)
	if !ok {
		return nil, fmt.Errorf("chroot %q storage does not support sessions: %w", c.Name, errdefs.ErrInvalidArgument)
	}

	out := c.Clone()

	rewritten, err := sc.CloneSession(c, sessionID)
	if err != nil {
		return nil, err
	}
	out.SetFacet(rewritten)
	out.SetFacet(NewSessionFacet(sessionID, c.Name, alias, user, root))

	return out, nil
}

// CloneSource produces the writable source-branch chroot for c. Only
// valid for snapshot-backed storage facets implementing
// SourceClonableFacet; any other facet composition is BAD_OPERATION.
func (c *Chroot) CloneSource() (*Chroot, error) {
	storage, err := c.Storage()
	if err != nil {
		return nil, err
	}
	sc, ok := storage.(SourceClonableFacet)
	if !ok {
		return nil, fmt.Errorf("chroot %q storage does not support source branches: %w", c.Name, errdefs.ErrInvalidArgument)
	}

	out := c.Clone()
	rewritten, err := sc.CloneSource(c)
	if err != nil {
		return nil, err
	}
	out.RemoveFacet(storage.Name())
	out.SetFacet(rewritten)
	out.Name = c.Name + "-source"
	out.SetFacet(NewSourceFacet())

	return out, nil
}

// SetupEnv composes the environment contribution of every attached
// facet, in an unspecified but deterministic order (map iteration
// order does not affect the result since facets contribute disjoint
// variable names by convention).
func (c *Chroot) SetupEnv(env *util.Environment) {
	for _, f := range c.facets {
		f.SetupEnv(c, env)
	}
}

// SessionFlags is the union of every attached facet's session flags.
func (c *Chroot) SessionFlags() SessionFlags {
	var flags SessionFlags
	for _, f := range c.facets {
		flags |= f.SessionFlags(c)
	}
	return flags
}

// GetKeyfile serialises the chroot (envelope fields plus every
// attached facet) into a keyfile section named after the chroot.
func (c *Chroot) GetKeyfile(file *keyfile.File) {
	sec := file.Section(c.Name)

	if sf, err := c.Storage(); err == nil {
		sec.SetString("type", sf.Name())
	}
	if c.Description != "" {
		sec.SetString("description", c.Description)
	}
	if len(c.Aliases) > 0 {
		sec.SetStringList("aliases", c.Aliases)
	}
	if len(c.Groups) > 0 {
		sec.SetStringList("groups", c.Groups)
	}
	if len(c.RootGroups) > 0 {
		sec.SetStringList("root-groups", c.RootGroups)
	}
	if len(c.Users) > 0 {
		sec.SetStringList("users", c.Users)
	}
	if len(c.RootUsers) > 0 {
		sec.SetStringList("root-users", c.RootUsers)
	}
	sec.SetBool("user-switch-allowed", c.AllowUserSwitch)
	sec.SetBool("run-setup-scripts", c.ScriptsEnabled)
	if c.ScriptConfig != "" {
		sec.SetString("script-config", c.ScriptConfig)
	}
	if c.Persona.Name != "" {
		sec.SetString("personality", c.Persona.Name)
	}
	if c.environmentFilter != nil {
		sec.SetString("environment-filter", c.environmentFilter.String())
	}
	if len(c.CommandPrefix) > 0 {
		sec.SetStringList("command-prefix", c.CommandPrefix)
	}
	if len(c.DefaultCommand) > 0 {
		sec.SetStringList("default-shell", c.DefaultCommand)
	}
	if c.MountLocation != "" {
		sec.SetString("mount-location", c.MountLocation)
	}

	for _, f := range c.facets {
		f.GetKeyfile(c, sec)
	}
}
