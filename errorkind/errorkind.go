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

// Package errorkind classifies every error the session lifecycle
// engine, config loader and front-ends can raise into one of the named
// kinds from the error-handling design, and renders them into the
// "<program>: <chroot-or-session>: <kind>: <reason>" user-visible line.
//
// Kinds carry an errdefs sentinel where a natural mapping exists
// (NotFound, InvalidArgument, AlreadyExists, PermissionDenied) so code
// one layer up can still use errors.Is against the coarse errdefs
// classification, while code that needs the exact kind uses errors.As
// against *Error.
package errorkind

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Kind names one of the error categories from the error handling design.
type Kind string

const (
	ConfigParse    Kind = "CONFIG_PARSE"
	ConfigValidate Kind = "CONFIG_VALIDATE"
	DuplicateName  Kind = "DUPLICATE_NAME"
	UnknownChroot  Kind = "UNKNOWN_CHROOT"
	BadOperation   Kind = "BAD_OPERATION"
	Authentication Kind = "AUTHENTICATION"
	Authorisation  Kind = "AUTHORISATION"
	UserSwitch     Kind = "USER_SWITCH"
	Lock           Kind = "LOCK"
	Unlock         Kind = "UNLOCK"
	Mount          Kind = "MOUNT"
	Umount         Kind = "UMOUNT"
	Snapshot       Kind = "SNAPSHOT"
	Script         Kind = "SCRIPT"
	ChrootEnter    Kind = "CHROOT_ENTER"
	ChildExec      Kind = "CHILD_EXEC"
	ChildSignal    Kind = "CHILD_SIGNAL"
	SessionCreate  Kind = "SESSION_CREATE"
	SessionWrite   Kind = "SESSION_WRITE"
	SessionMissing Kind = "SESSION_MISSING"
	Internal       Kind = "INTERNAL"
)

// Error pairs a Kind with the chroot or session name it concerns and
// the underlying cause.
type Error struct {
	Kind     Kind
	Target   string // chroot or session name/alias
	Reason   error
	sentinel error
}

func (e *Error) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Target, e.Kind, e.Reason)
}

// Unwrap exposes both the original cause and the coarse errdefs
// sentinel to errors.Is/errors.As.
func (e *Error) Unwrap() []error {
	if e.sentinel != nil {
		return []error{e.Reason, e.sentinel}
	}
	return []error{e.Reason}
}

// New builds an Error of the given kind, concerning target, wrapping
// err as the underlying reason.
func New(kind Kind, target string, err error) *Error {
	return &Error{Kind: kind, Target: target, Reason: err, sentinel: sentinelFor(kind)}
}

func sentinelFor(kind Kind) error {
	switch kind {
	case UnknownChroot, SessionMissing:
		return errdefs.ErrNotFound
	case DuplicateName:
		return errdefs.ErrAlreadyExists
	case ConfigParse, ConfigValidate, BadOperation:
		return errdefs.ErrInvalidArgument
	case UserSwitch, Authorisation, Authentication:
		return errdefs.ErrPermissionDenied
	default:
		return nil
	}
}

// Line renders the user-visible error line:
// "<program>: <chroot-or-session>: <kind>: <reason>".
func Line(program string, err error) string {
	var ke *Error
	if errors.As(err, &ke) {
		if ke.Target == "" {
			return fmt.Sprintf("%s: %s: %s", program, ke.Kind, ke.Reason)
		}
		return fmt.Sprintf("%s: %s: %s: %s", program, ke.Target, ke.Kind, ke.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", program, Internal, err)
}
