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

package util

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasename(t *testing.T) {
	assert.Equal(t, "perl", Basename("/usr/bin/perl"))
	assert.Equal(t, "lib", Basename("/usr/lib"))
	assert.Equal(t, "usr", Basename("/usr/"))
	assert.Equal(t, "usr", Basename("usr"))
	assert.Equal(t, "/", Basename("/"))
	assert.Equal(t, ".", Basename("."))
	assert.Equal(t, "..", Basename(".."))
}

func TestDirname(t *testing.T) {
	assert.Equal(t, "/usr/bin", Dirname("/usr/bin/perl"))
	assert.Equal(t, "/usr", Dirname("/usr/lib"))
	assert.Equal(t, "/", Dirname("/usr/"))
	assert.Equal(t, ".", Dirname("usr"))
	assert.Equal(t, "/", Dirname("/"))
	assert.Equal(t, ".", Dirname("."))
	assert.Equal(t, ".", Dirname(".."))
}

func TestSplitString(t *testing.T) {
	assert.Equal(t, []string{"usr", "share", "info"}, SplitString("/usr/share/info", "/"))
}

func TestJoinStrings(t *testing.T) {
	assert.Equal(t, "foo--bar--baz", JoinStrings([]string{"foo", "bar", "baz"}, "--"))
}

func TestFindProgramInPath(t *testing.T) {
	assert.Equal(t, "/bin/sh", FindProgramInPath("sh", "/usr/local/bin:/usr/bin:/bin", ""))
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "yes", "1"} {
		v, err := ParseBool(s)
		require.NoError(t, err)
		assert.True(t, v)
	}
	for _, s := range []string{"false", "no", "0"} {
		v, err := ParseBool(s)
		require.NoError(t, err)
		assert.False(t, v)
	}
	_, err := ParseBool("invalid")
	assert.Error(t, err)
}

func TestParseInt(t *testing.T) {
	v, err := ParseInt("23")
	require.NoError(t, err)
	assert.Equal(t, 23, v)

	_, err = ParseInt("invalid")
	assert.Error(t, err)
}

func TestParseString(t *testing.T) {
	v, err := ParseString("test string")
	require.NoError(t, err)
	assert.Equal(t, "test string", v)
}

func TestEnvironmentFilter(t *testing.T) {
	env := NewEnvironment([]string{"HOME=/root", "SCHROOT_USER=foo", "PATH=/bin"})
	re, err := CompileRegex(`^SCHROOT_`)
	require.NoError(t, err)
	env.Filter(re.Compiled())
	_, ok := env.Get("HOME")
	assert.False(t, ok)
	v, ok := env.Get("SCHROOT_USER")
	assert.True(t, ok)
	assert.Equal(t, "foo", v)
}

func TestDirStreamOrdering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, writeEmpty(dir+"/"+name))
	}
	ds, err := OpenDirStream(dir)
	require.NoError(t, err)

	var got []string
	for {
		name, ok := ds.Next()
		if !ok {
			break
		}
		got = append(got, name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func writeEmpty(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}
