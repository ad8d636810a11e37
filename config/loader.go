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

// Package config implements the configuration loader/validator for
// chroot definitions and live sessions: reading keyfiles, dispatching
// each section's "type" key to a storage facet, tracking unused keys,
// and rejecting duplicate names and alias collisions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/chroot/facet"
	"github.com/basuotian/chroots/internal/identifiers"
	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/personality"
)

// Store holds every chroot definition loaded from a configuration
// directory (or, for sessions, the sessions directory), indexed by
// name, with aliases resolved to their target name.
type Store struct {
	chroots map[string]*chroot.Chroot
	aliases map[string]string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{chroots: make(map[string]*chroot.Chroot), aliases: make(map[string]string)}
}

// Chroot resolves name (a chroot name or alias) to its chroot, if any.
func (s *Store) Chroot(name string) (*chroot.Chroot, bool) {
	if c, ok := s.chroots[name]; ok {
		return c, true
	}
	if target, ok := s.aliases[name]; ok {
		c, ok := s.chroots[target]
		return c, ok
	}
	return nil, false
}

// Names returns every chroot name in the store, sorted.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.chroots))
	for name := range s.chroots {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns every chroot in the store, in name-sorted order.
func (s *Store) All() []*chroot.Chroot {
	names := s.Names()
	out := make([]*chroot.Chroot, 0, len(names))
	for _, n := range names {
		out = append(out, s.chroots[n])
	}
	return out
}

// Add validates and inserts c into the store under its name and
// aliases, failing on a duplicate chroot name or an alias that
// collides with an existing name or alias.
func (s *Store) Add(c *chroot.Chroot) error {
	if err := identifiers.Validate(c.Name); err != nil {
		return fmt.Errorf("chroot name %q: %w", c.Name, err)
	}
	if _, exists := s.chroots[c.Name]; exists {
		return fmt.Errorf("duplicate chroot name %q: %w", c.Name, errdefs.ErrAlreadyExists)
	}
	if _, exists := s.aliases[c.Name]; exists {
		return fmt.Errorf("chroot name %q collides with an existing alias: %w", c.Name, errdefs.ErrAlreadyExists)
	}

	for _, alias := range c.Aliases {
		if err := identifiers.Validate(alias); err != nil {
			return fmt.Errorf("alias %q of chroot %q: %w", alias, c.Name, err)
		}
		if _, exists := s.chroots[alias]; exists {
			return fmt.Errorf("alias %q of chroot %q collides with an existing chroot name: %w", alias, c.Name, errdefs.ErrAlreadyExists)
		}
		if target, exists := s.aliases[alias]; exists && target != c.Name {
			return fmt.Errorf("alias %q of chroot %q collides with alias of %q: %w", alias, c.Name, target, errdefs.ErrAlreadyExists)
		}
	}

	s.chroots[c.Name] = c
	for _, alias := range c.Aliases {
		s.aliases[alias] = c.Name
	}
	return nil
}

// LoadDirectory reads every regular file directly under dir as a
// keyfile and adds every chroot it defines to the store.
func LoadDirectory(dir string) (*Store, error) {
	store := NewStore()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading configuration directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := loadFile(store, path); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// LoadFile reads a single keyfile and adds every chroot it defines to
// a fresh store.
func LoadFile(path string) (*Store, error) {
	store := NewStore()
	if err := loadFile(store, path); err != nil {
		return nil, err
	}
	return store, nil
}

func loadFile(store *Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	kf, err := keyfile.Parse(path, f)
	if err != nil {
		return err
	}

	for _, name := range kf.Sections() {
		c, err := BuildChroot(name, kf.Section(name))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := store.Add(c); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// BuildChroot constructs a Chroot from a parsed keyfile section: the
// "type" key selects and configures the storage facet, the remaining
// well-known keys populate the envelope, and any key left untouched
// afterwards is reported as an unused-key warning (logged, never an
// error; the "custom" type gets the same warning with its own message
// -- see SPEC_FULL.md item 5).
func BuildChroot(name string, sec *keyfile.Section) (*chroot.Chroot, error) {
	typeName, ok := sec.GetString("type")
	if !ok {
		return nil, fmt.Errorf("chroot %q: missing required key %q: %w", name, "type", errdefs.ErrInvalidArgument)
	}

	sf, err := facet.New(typeName)
	if err != nil {
		return nil, fmt.Errorf("chroot %q: %w: %v", name, errdefs.ErrInvalidArgument, err)
	}

	c := chroot.New(name)

	if err := sf.SetKeyfile(c, sec); err != nil {
		return nil, fmt.Errorf("chroot %q: %w", name, err)
	}
	c.SetFacet(sf)

	if v, ok := sec.GetString("description"); ok {
		c.Description = v
	}
	if v, ok := sec.GetStringList("aliases"); ok {
		c.Aliases = v
	}
	if v, ok := sec.GetStringList("groups"); ok {
		c.Groups = v
	}
	if v, ok := sec.GetStringList("root-groups"); ok {
		c.RootGroups = v
	}
	if v, ok := sec.GetStringList("users"); ok {
		c.Users = v
	}
	if v, ok := sec.GetStringList("root-users"); ok {
		c.RootUsers = v
	}
	if v, ok, err := sec.GetBool("user-switch-allowed"); err != nil {
		return nil, fmt.Errorf("chroot %q: %w", name, err)
	} else if ok {
		c.AllowUserSwitch = v
	}
	if v, ok, err := sec.GetBool("run-setup-scripts"); err != nil {
		return nil, fmt.Errorf("chroot %q: %w", name, err)
	} else if ok {
		c.ScriptsEnabled = v
	}
	if v, ok := sec.GetString("script-config"); ok {
		c.ScriptConfig = v
	}
	if v, ok := sec.GetString("selinux-context"); ok {
		c.SELinuxContext = v
	}
	if v, ok := sec.GetString("personality"); ok {
		p, err := personality.Resolve(v)
		if err != nil {
			return nil, fmt.Errorf("chroot %q: %w", name, err)
		}
		c.Persona = p
		c.SetFacet(chroot.NewPersonalityFacet())
	}
	if v, ok := sec.GetString("environment-filter"); ok {
		if err := c.SetEnvironmentFilter(v); err != nil {
			return nil, fmt.Errorf("chroot %q: %w", name, err)
		}
	}
	if v, ok := sec.GetStringList("command-prefix"); ok {
		c.CommandPrefix = v
	}
	if v, ok := sec.GetStringList("default-shell"); ok {
		c.DefaultCommand = v
	}
	if v, ok := sec.GetString("mount-location"); ok {
		c.MountLocation = v
	}

	if unused := sec.UnusedKeys(); len(unused) > 0 {
		msg := "unused keys in chroot definition"
		if typeName == "custom" {
			msg = "custom chroot type: keys not declared as used by any facet"
		}
		log.L.WithField("chroot", name).WithField("keys", unused).Warn(msg)
	}

	return c, nil
}
