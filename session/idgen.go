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
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/basuotian/chroots/internal/atomicfile"
)

// generateID returns a random 128-bit token rendered as lowercase hex,
// reusing google/uuid's random source (the teacher's id-generation
// library) without adopting its dashed string format, since the
// session-id grammar is plain hex (see internal/identifiers).
func generateID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// claimSessionID generates session ids until one is not already taken
// under sessionsDir, reserving it by creating an empty placeholder
// file with O_CREAT|O_EXCL so two concurrent invocations can never
// claim the same id.
func claimSessionID(sessionsDir string) (string, error) {
	for attempt := 0; attempt < 16; attempt++ {
		id := generateID()
		path := filepath.Join(sessionsDir, id)
		f, err := atomicfile.CreateExclusive(path, 0o600)
		if err == nil {
			f.Close()
			return id, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("reserving session id under %s: %w", sessionsDir, err)
		}
	}
	return "", fmt.Errorf("could not find an unused session id under %s after 16 attempts", sessionsDir)
}
