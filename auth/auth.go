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

// Package auth implements the pluggable authentication/authorisation
// adapter that gates the MOUNTED -> ACTIVE transition of the session
// lifecycle engine: start a dialog, authenticate the caller, run
// account/session management, and stop cleanly whether or not
// authentication succeeded.
package auth

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/containerd/log"
)

// Request describes the caller the engine is trying to authorise.
type Request struct {
	// ChrootName is the chroot being entered, used in audit messages.
	ChrootName string
	// RequestedUser is the user the caller asked to run as.
	RequestedUser string
	// CallingUser is the real (pre-drop) user invoking the program.
	CallingUser string
	// Root indicates the caller asked to enter as root.
	Root bool
	// Service is the PAM service name to use, if the adapter supports
	// one (the null adapter ignores it).
	Service string
}

// Adapter is the authentication/authorisation contract. Implementations
// are expected to be used as: Start, then Authenticate, then (on
// success) Account and OpenSession, then, after the command completes,
// CloseSession and Stop -- mirroring PAM's own session bracketing.
type Adapter interface {
	// Start begins a new authentication transaction for req.
	Start(ctx context.Context, req Request) error

	// Authenticate verifies the caller's credentials, prompting over
	// the controlling terminal if necessary. Returns an errdefs-
	// classified error (ErrPermissionDenied) on failure.
	Authenticate(ctx context.Context) error

	// Account runs account-validity checks (expiry, access hours).
	Account(ctx context.Context) error

	// OpenSession marks the start of a credentialed session (PAM
	// session modules, e.g. pam_limits, pam_lastlog).
	OpenSession(ctx context.Context) error

	// CloseSession reverses OpenSession. Always called if OpenSession
	// succeeded, regardless of how the command exited.
	CloseSession(ctx context.Context) error

	// Stop ends the transaction, releasing any adapter-held resources.
	// Always called exactly once, paired with Start.
	Stop(ctx context.Context) error
}

// New returns the PAM-backed adapter when PAM support was compiled in
// (see pam_linux.go), or the null adapter otherwise.
func New() Adapter {
	if a := newPAM(); a != nil {
		return a
	}
	log.L.Debug("PAM support not compiled in, using null authentication adapter")
	return &Null{}
}

// Null is an always-succeeds adapter for environments with no PAM
// stack (containers, CI, the default build without the pam tag). It
// still enforces the Root/RequestedUser invariant the engine expects
// from any adapter: a request to enter as root without calling-user
// root privileges is rejected.
type Null struct {
	req Request
}

func (n *Null) Start(ctx context.Context, req Request) error {
	n.req = req
	return nil
}

func (n *Null) Authenticate(ctx context.Context) error {
	if n.req.Root && n.req.CallingUser != "root" {
		return fmt.Errorf("root access to %s denied for %s: %w", n.req.ChrootName, n.req.CallingUser, errdefs.ErrPermissionDenied)
	}
	return nil
}

func (n *Null) Account(ctx context.Context) error      { return nil }
func (n *Null) OpenSession(ctx context.Context) error  { return nil }
func (n *Null) CloseSession(ctx context.Context) error { return nil }
func (n *Null) Stop(ctx context.Context) error         { return nil }
