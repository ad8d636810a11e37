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

// Package chroot implements the chroot envelope and its facet
// composition model: a chroot is an identity plus shared policy, and
// every piece of typed behaviour (storage, session, personality,
// union, source-branch) is contributed by a facet attached to it.
package chroot

import (
	"github.com/basuotian/chroots/internal/keyfile"
	"github.com/basuotian/chroots/internal/util"
)

// SessionFlags is a bitmask of the session-related capabilities a
// facet contributes to its owning chroot.
type SessionFlags uint8

const (
	SessionNone   SessionFlags = 0
	SessionCreate SessionFlags = 1 << 0
	SessionClone  SessionFlags = 1 << 1
	SessionPurge  SessionFlags = 1 << 2
	SessionSource SessionFlags = 1 << 3
)

// Facet is a named capability module attached to a Chroot. Every
// concrete facet (storage variants, session, personality, union,
// source, mountable, session-clonable, source-clonable) implements
// this interface; the envelope itself only ever talks to facets
// through it.
type Facet interface {
	// Name returns the facet's registry name, e.g. "directory" or
	// "session".
	Name() string

	// Clone returns a deep copy of the facet, detached from any
	// owning chroot.
	Clone() Facet

	// SetupEnv contributes environment variables describing this
	// facet's view of the chroot (e.g. MOUNT_DEVICE for storage
	// facets) into env.
	SetupEnv(c *Chroot, env *util.Environment)

	// SessionFlags reports which session capabilities this facet
	// grants its owning chroot.
	SessionFlags(c *Chroot) SessionFlags

	// UsedKeys returns every keyfile key this facet consumes, used to
	// compute the "unused keys" warning at config-load time.
	UsedKeys() []string

	// GetKeyfile serialises the facet's state into section.
	GetKeyfile(c *Chroot, section *keyfile.Section)

	// SetKeyfile populates the facet's state from section. Keys not
	// declared in UsedKeys must not be read.
	SetKeyfile(c *Chroot, section *keyfile.Section) error
}

// StorageFacet is the subset of Facet every storage variant
// additionally implements: the on-host path backing the chroot, and
// the acquire/release pair the session engine drives through the
// PREPARED -> MOUNTED and ACTIVE -> UNMOUNTED transitions.
type StorageFacet interface {
	Facet

	// GetPath returns the on-host mount source for this storage kind
	// (a directory, a device node, a loop file, ...), used for --info
	// output and SetupEnv, not necessarily the path to chroot(2) into.
	GetPath(c *Chroot) string

	// Acquire performs whatever setup this storage kind requires
	// before the chroot can be entered (bind-mount, lvcreate+mount,
	// unpack, ...), returning a Release to reverse it. Acquire must
	// leave no partial state behind on error: implementations build
	// their own internal release stack and unwind it before
	// returning a non-nil error.
	Acquire(c *Chroot, mountLocation string) (Release, error)

	// Root returns the path the engine should chroot(2) into once
	// Acquire has succeeded. Every mounting variant returns
	// mountLocation unchanged; plain returns its configured directory
	// directly, since it never mounts anything onto mountLocation.
	Root(c *Chroot, mountLocation string) string
}

// Release reverses one Acquire step. Teardown errors are logged by the
// caller but never replace the first error that triggered the
// teardown in the first place.
type Release func() error

// SessionClonableFacet marks a storage facet able to spawn a live
// session instance of itself (LVM/BTRFS snapshots, directories,
// file-archives, loopback, block devices: everything except plain).
type SessionClonableFacet interface {
	Facet

	// CloneSession rewrites any storage-specific identifiers (e.g. an
	// LV name) for a freshly created session and returns the facet to
	// attach to the session's chroot copy.
	CloneSession(c *Chroot, sessionID string) (Facet, error)
}

// SourceClonableFacet marks a storage facet able to expose a writable
// source branch as a sibling chroot (snapshot-backed storage only).
type SourceClonableFacet interface {
	Facet

	// CloneSource returns the facet set for the read-write source
	// branch of c.
	CloneSource(c *Chroot) (Facet, error)
}
