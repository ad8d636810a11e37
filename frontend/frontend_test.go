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

package frontend

import (
	"testing"

	"github.com/basuotian/chroots/chroot"
	"github.com/basuotian/chroots/chroot/facet"
	"github.com/basuotian/chroots/config"
)

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	store := config.NewStore()

	sid := chroot.New("sid")
	sid.Aliases = []string{"unstable", "default"}
	sid.SetFacet(&facet.Plain{Directory: "/srv/chroot/sid"})
	if err := store.Add(sid); err != nil {
		t.Fatalf("adding sid: %v", err)
	}

	bullseye := chroot.New("bullseye")
	bullseye.Aliases = []string{"stable"}
	bullseye.SetFacet(&facet.Plain{Directory: "/srv/chroot/bullseye"})
	if err := store.Add(bullseye); err != nil {
		t.Fatalf("adding bullseye: %v", err)
	}

	return store
}

func TestResolveChrootNameDirect(t *testing.T) {
	store := newTestStore(t)

	name, err := resolveChrootName(General(), store, "sid")
	if err != nil {
		t.Fatalf("resolveChrootName: %v", err)
	}
	if name != "sid" {
		t.Fatalf("got %q, want sid", name)
	}
}

func TestResolveChrootNameAliasOnly(t *testing.T) {
	store := newTestStore(t)

	name, err := resolveChrootName(Compat(), store, "stable")
	if err != nil {
		t.Fatalf("resolveChrootName: %v", err)
	}
	if name != "bullseye" {
		t.Fatalf("got %q, want bullseye", name)
	}

	// Compat is alias-only: the bare chroot name "sid" must not resolve
	// even though it exists, matching dchroot's own alias-only lookup.
	if _, err := resolveChrootName(Compat(), store, "sid"); err == nil {
		t.Fatalf("expected resolveChrootName to reject a bare chroot name under AliasOnly")
	}
}

func TestResolveChrootNameUnknown(t *testing.T) {
	store := newTestStore(t)

	if _, err := resolveChrootName(General(), store, "nonexistent"); err == nil {
		t.Fatalf("expected error resolving an unknown chroot")
	}
}

func TestBuildRequestUserSwitchDenied(t *testing.T) {
	store := newTestStore(t)
	opts := Options{
		Verb:        VerbRun,
		ChrootNames: []string{"unstable"},
		CallingUser: "alice",
		User:        "root",
		Command:     []string{"/bin/sh"},
	}

	if _, err := BuildRequest(Compat(), store, opts); err == nil {
		t.Fatalf("expected user switch to be denied under the compat policy")
	}
}

func TestBuildRequestUserSwitchAllowed(t *testing.T) {
	store := newTestStore(t)
	opts := Options{
		Verb:        VerbRun,
		ChrootNames: []string{"sid"},
		CallingUser: "alice",
		User:        "root",
		Command:     []string{"/bin/sh"},
	}

	req, err := BuildRequest(General(), store, opts)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if req.RequestedUser != "root" || !req.Root {
		t.Fatalf("got RequestedUser=%q Root=%v, want root/true", req.RequestedUser, req.Root)
	}
	if req.ChrootName != "sid" {
		t.Fatalf("got ChrootName=%q, want sid", req.ChrootName)
	}
}

func TestBuildRequestDefaultsToCallingUser(t *testing.T) {
	store := newTestStore(t)
	opts := Options{
		Verb:        VerbRun,
		ChrootNames: []string{"sid"},
		CallingUser: "alice",
		Command:     []string{"/bin/sh"},
	}

	req, err := BuildRequest(General(), store, opts)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if req.RequestedUser != "alice" || req.Root {
		t.Fatalf("got RequestedUser=%q Root=%v, want alice/false", req.RequestedUser, req.Root)
	}
}

func TestBuildRequestSessionOpsRejectedUnderCompat(t *testing.T) {
	store := newTestStore(t)
	opts := Options{
		Verb:        VerbBeginSession,
		ChrootNames: []string{"sid"},
		CallingUser: "alice",
	}

	if _, err := BuildRequest(Compat(), store, opts); err == nil {
		t.Fatalf("expected --begin-session to be rejected under the compat policy")
	}
}

func TestBuildRequestExplicitDirectoryWins(t *testing.T) {
	store := newTestStore(t)
	opts := Options{
		Verb:        VerbRun,
		ChrootNames: []string{"sid"},
		CallingUser: "alice",
		Directory:   "/tmp/build",
		Command:     []string{"/bin/sh"},
	}

	req, err := BuildRequest(General(), store, opts)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	if len(req.DirectoryCandidates) != 1 || req.DirectoryCandidates[0] != "/tmp/build" {
		t.Fatalf("got %v, want a single explicit candidate", req.DirectoryCandidates)
	}
}

func TestBatchPolicyAddsCSBuildEnv(t *testing.T) {
	store := newTestStore(t)
	opts := Options{
		Verb:        VerbRun,
		ChrootNames: []string{"sid"},
		CallingUser: "alice",
		Command:     []string{"make", "world"},
	}

	req, err := BuildRequest(Batch(), store, opts)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	found := false
	for _, kv := range req.ExtraEnv {
		if kv == "CSBUILD=1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("got ExtraEnv=%v, want CSBUILD=1 present", req.ExtraEnv)
	}
}
