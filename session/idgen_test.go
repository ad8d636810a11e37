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

package session

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestGenerateIDIsLowercaseHex(t *testing.T) {
	id := generateID()
	assert.Regexp(t, hexID, id)
}

func TestClaimSessionIDIsUnique(t *testing.T) {
	dir := t.TempDir()

	first, err := claimSessionID(dir)
	require.NoError(t, err)

	second, err := claimSessionID(dir)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestClaimSessionIDReservesFile(t *testing.T) {
	dir := t.TempDir()

	id, err := claimSessionID(dir)
	require.NoError(t, err)

	require.FileExists(t, dir+"/"+id)
}
