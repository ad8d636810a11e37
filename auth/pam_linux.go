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

//go:build linux && cgo && pam

package auth

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/containerd/errdefs"
	"github.com/msteinert/pam"

	"github.com/basuotian/chroots/internal/feature"
)

func init() {
	feature.Register(feature.PAM)
}

// PAM authenticates through the system PAM stack, using the
// "schroot"-style conversation function every PAM-aware launcher
// registers under its own service name.
type PAM struct {
	req Request
	tx  *pam.Transaction
}

func newPAM() Adapter {
	return &PAM{}
}

func (p *PAM) Start(ctx context.Context, req Request) error {
	p.req = req
	service := req.Service
	if service == "" {
		service = "chroots"
	}

	tx, err := pam.StartFunc(service, req.RequestedUser, func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return readSecret(msg)
		case pam.PromptEchoOn:
			return readLine(msg)
		case pam.ErrorMsg, pam.TextInfo:
			fmt.Fprintln(os.Stderr, msg)
			return "", nil
		default:
			return "", fmt.Errorf("unsupported PAM conversation style")
		}
	})
	if err != nil {
		return fmt.Errorf("starting PAM transaction for %s: %w", req.ChrootName, err)
	}
	p.tx = tx
	return nil
}

func (p *PAM) Authenticate(ctx context.Context) error {
	if err := p.tx.Authenticate(0); err != nil {
		return fmt.Errorf("authenticating %s for %s: %w", p.req.CallingUser, p.req.ChrootName, errdefs.ErrPermissionDenied)
	}
	return nil
}

func (p *PAM) Account(ctx context.Context) error {
	if err := p.tx.AcctMgmt(0); err != nil {
		return fmt.Errorf("account validation for %s: %w", p.req.RequestedUser, errdefs.ErrPermissionDenied)
	}
	return nil
}

func (p *PAM) OpenSession(ctx context.Context) error {
	if err := p.tx.SetCred(pam.EstablishCred); err != nil {
		return fmt.Errorf("setting PAM credentials: %w", err)
	}
	if err := p.tx.OpenSession(0); err != nil {
		return fmt.Errorf("opening PAM session: %w", err)
	}
	return nil
}

func (p *PAM) CloseSession(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}
	if err := p.tx.CloseSession(0); err != nil {
		return fmt.Errorf("closing PAM session: %w", err)
	}
	return nil
}

func (p *PAM) Stop(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}
	return p.tx.SetCred(pam.DeleteCred)
}

func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return trimNewline(line), nil
}

func readLine(prompt string) (string, error) {
	return readSecret(prompt)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
