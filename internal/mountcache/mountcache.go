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

// Package mountcache is a small bbolt-backed cache of the mount
// entries observed under a given mount-location, so that repeated
// listmounts invocations from setup scripts during a single session's
// lifetime don't each re-walk /proc/self/mountinfo from scratch. The
// session engine invalidates the cached entry for a mount-location
// immediately after it mounts or unmounts anything there; every other
// reader is free to serve a stale read between those points, since
// schroot's setup scripts only ever call listmounts to find what to
// unmount, not to observe mounts made by someone else concurrently.
package mountcache

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("mounts")

// Cache wraps a single bbolt database file.
type Cache struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening mount cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising mount cache %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database file.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached entry list for mountLocation, or ok=false if
// nothing is cached (a cold read, or one just invalidated).
func (c *Cache) Get(mountLocation string) (entries []string, ok bool, err error) {
	err = c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(mountLocation))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &entries)
	})
	return entries, ok, err
}

// Put stores entries as the cached mount list for mountLocation.
func (c *Cache) Put(mountLocation string, entries []string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(mountLocation), data)
	})
}

// Invalidate drops the cached entry for mountLocation, called by the
// engine after every mount/unmount against it.
func (c *Cache) Invalidate(mountLocation string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(mountLocation))
	})
}
