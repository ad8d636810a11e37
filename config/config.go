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

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EngineConfig is the small set of tunables governing the engine
// itself, as opposed to chroot definitions: where chroots/sessions are
// defined, how long to wait for locks, and which PAM service to use.
// Loaded from a TOML file the same way cmd/containerd/command/config.go
// loads srvconfig.Config -- the grammar differs (chroot definitions
// stay INI-style keyfiles, a spec-mandated format) but the engine's own
// settings are plain TOML, the teacher's ambient configuration format.
type EngineConfig struct {
	ChrootsDirectory  string        `toml:"chroots_directory"`
	SessionsDirectory string        `toml:"sessions_directory"`
	ScriptsDirectory  string        `toml:"scripts_directory"`
	LockTimeout       time.Duration `toml:"lock_timeout"`
	PAMService        string        `toml:"pam_service"`
	Verbose           bool          `toml:"verbose"`
}

// DefaultEngineConfig matches the original tool's compiled-in defaults
// under /etc/schroot, adapted to this project's name.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ChrootsDirectory:  "/etc/chroots/chroot.d",
		SessionsDirectory: "/var/run/chroots/session",
		ScriptsDirectory:  "/etc/chroots/setup.d",
		LockTimeout:       15 * time.Second,
		PAMService:        "chroots",
	}
}

// LoadEngineConfig reads a TOML engine-configuration file, applying its
// values over the defaults. A missing file is not an error -- the
// defaults are used as-is, matching schroot's own behaviour of working
// out of the box with no engine config present.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading engine config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing engine config %s: %w", path, err)
	}
	return cfg, nil
}
