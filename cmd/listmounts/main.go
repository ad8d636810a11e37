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

// Command listmounts enumerates mount entries whose mount-point is at
// or under a given path, one per line, deepest first: the order a
// caller must unmount them in to fully undo them. Teardown scripts
// call it to discover what a custom storage facet mounted without
// hard-coding the mount order themselves.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/urfave/cli/v2"

	"github.com/basuotian/chroots/internal/mountcache"
)

func main() {
	app := &cli.App{
		Name:      "listmounts",
		Usage:     "list mount entries under a path, in unmount order",
		UsageText: "listmounts -m <path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mount-location", Aliases: []string{"m"}, Required: true},
			&cli.StringFlag{Name: "cache", Usage: "path to a bbolt mount-table cache to consult first"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "listmounts:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	path := c.String("mount-location")

	entries, err := entriesFor(c.String("cache"), path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no mounts found under %s", path)
	}

	for _, e := range entries {
		fmt.Println(e)
	}
	return nil
}

// entriesFor returns every mount-point at or under path, deepest
// first, consulting cachePath's cache before walking
// /proc/self/mountinfo if one was given.
func entriesFor(cachePath, path string) ([]string, error) {
	if cachePath != "" {
		cache, err := mountcache.Open(cachePath)
		if err == nil {
			defer cache.Close()
			if cached, ok, err := cache.Get(path); err == nil && ok {
				return cached, nil
			}
		}
	}

	entries, err := walkMountinfo(path)
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		if cache, err := mountcache.Open(cachePath); err == nil {
			defer cache.Close()
			cache.Put(path, entries)
		}
	}
	return entries, nil
}

func walkMountinfo(path string) ([]string, error) {
	clean := filepath.Clean(path)

	mounts, err := mountinfo.GetMounts()
	if err != nil {
		return nil, fmt.Errorf("reading mount table: %w", err)
	}

	var points []string
	for _, m := range mounts {
		mp := filepath.Clean(m.Mountpoint)
		if mp == clean || strings.HasPrefix(mp, clean+string(filepath.Separator)) {
			points = append(points, mp)
		}
	}

	// Deepest path first: the order in which an unmounter must proceed
	// to avoid "device busy" on a parent mount still covering a child.
	sort.Slice(points, func(i, j int) bool {
		return strings.Count(points[i], string(filepath.Separator)) > strings.Count(points[j], string(filepath.Separator))
	})
	return points, nil
}
