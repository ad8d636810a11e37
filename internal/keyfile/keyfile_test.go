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

package keyfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# a sample chroot definition
[sid]
type=directory
directory=/srv/chroot/sid
description=Debian sid
description[fr]=Debian sid (fr)
groups=sbuild,admin
users=
`

func TestParseBasic(t *testing.T) {
	f, err := Parse("sample", strings.NewReader(sample))
	require.NoError(t, err)

	require.True(t, f.HasSection("sid"))
	sec := f.Section("sid")

	v, ok := sec.GetString("type")
	require.True(t, ok)
	assert.Equal(t, "directory", v)

	groups, ok := sec.GetStringList("groups")
	require.True(t, ok)
	assert.Equal(t, []string{"sbuild", "admin"}, groups)

	desc, ok := sec.GetString("description")
	require.True(t, ok)
	assert.Equal(t, "Debian sid", desc)
}

func TestParseMissingEquals(t *testing.T) {
	_, err := Parse("bad", strings.NewReader("[a]\nnoequals\n"))
	assert.Error(t, err)
}

func TestParseKeyOutsideSection(t *testing.T) {
	_, err := Parse("bad", strings.NewReader("key=value\n"))
	assert.Error(t, err)
}

func TestUnusedKeys(t *testing.T) {
	f, err := Parse("sample", strings.NewReader(sample))
	require.NoError(t, err)
	sec := f.Section("sid")

	// Read only "type"; everything else should show up as unused.
	sec.GetString("type")

	unused := sec.UnusedKeys()
	assert.Contains(t, unused, "directory")
	assert.Contains(t, unused, "groups")
	assert.NotContains(t, unused, "type")
}

func TestRoundTripIdempotent(t *testing.T) {
	f := New()
	sec := f.Section("sid")
	sec.SetString("type", "directory")
	sec.SetString("directory", "/srv/chroot/sid")
	sec.SetStringList("groups", []string{"sbuild", "admin"})

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	f2, err := Parse("roundtrip", strings.NewReader(buf.String()))
	require.NoError(t, err)

	var buf2 bytes.Buffer
	require.NoError(t, f2.Write(&buf2))

	assert.Equal(t, buf.String(), buf2.String())
}

func TestGetBoolValues(t *testing.T) {
	f := New()
	sec := f.Section("x")
	sec.SetString("a", "true")
	sec.SetString("b", "no")
	sec.SetString("c", "bogus")

	v, ok, err := sec.GetBool("a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, v)

	v, ok, err = sec.GetBool("b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, v)

	_, _, err = sec.GetBool("c")
	assert.Error(t, err)
}
