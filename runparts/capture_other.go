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

//go:build !unix

package runparts

import (
	"context"
	"fmt"
	"io"
)

type outputCapture struct{}

func newOutputCapture(ctx context.Context, dir string) (*outputCapture, error) {
	return nil, fmt.Errorf("script output capture requires a unix platform")
}

func (c *outputCapture) Writer() io.Writer { return nil }

func (c *outputCapture) Close() (string, error) { return "", nil }
