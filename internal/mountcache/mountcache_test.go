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

package mountcache

import (
	"path/filepath"
	"reflect"
	"testing"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mounts.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t)

	if _, ok, err := c.Get("/srv/chroot/sid-abc123"); err != nil || ok {
		t.Fatalf("got ok=%v err=%v, want a cold miss", ok, err)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)

	want := []string{"/srv/chroot/sid-abc123/proc", "/srv/chroot/sid-abc123/dev"}
	if err := c.Put("/srv/chroot/sid-abc123", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get("/srv/chroot/sid-abc123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected a cache hit after Put")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestInvalidate(t *testing.T) {
	c := openTestCache(t)

	if err := c.Put("/srv/chroot/sid-abc123", []string{"/srv/chroot/sid-abc123/proc"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Invalidate("/srv/chroot/sid-abc123"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	if _, ok, err := c.Get("/srv/chroot/sid-abc123"); err != nil || ok {
		t.Fatalf("got ok=%v err=%v, want a miss after Invalidate", ok, err)
	}
}

func TestInvalidateUnknownKeyIsNoop(t *testing.T) {
	c := openTestCache(t)

	if err := c.Invalidate("/srv/chroot/never-mounted"); err != nil {
		t.Fatalf("Invalidate on an absent key should not error: %v", err)
	}
}
