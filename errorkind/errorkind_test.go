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

package errorkind

import (
	"errors"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
)

func TestLine(t *testing.T) {
	err := New(Lock, "sid", errors.New("timed out after 15s"))
	assert.Equal(t, "chroot: sid: LOCK: timed out after 15s", Line("chroot", err))
}

func TestSentinelClassification(t *testing.T) {
	err := New(UnknownChroot, "bogus", errors.New("no such chroot"))
	assert.True(t, errors.Is(err, errdefs.ErrNotFound))
}

func TestLineWithoutTarget(t *testing.T) {
	err := New(Internal, "", errors.New("unexpected"))
	assert.Equal(t, "chroot: INTERNAL: unexpected", Line("chroot", err))
}
