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

package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempLockTarget(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "target")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func TestAcquireRelease(t *testing.T) {
	path := tempLockTarget(t)
	l, err := Acquire(context.Background(), path, DefaultTimeout)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestAcquireContended(t *testing.T) {
	path := tempLockTarget(t)
	first, err := Acquire(context.Background(), path, DefaultTimeout)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(context.Background(), path, 100*time.Millisecond)
	assert.Error(t, err)
}

func TestAcquireMissingFile(t *testing.T) {
	_, err := Acquire(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Second)
	assert.Error(t, err)
}
