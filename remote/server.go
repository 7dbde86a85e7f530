// Package remote mirrors the keypad display over SSH. A session shows the
// same frames the physical display renders and feeds its keystrokes through
// the mode controller, so a remote operator and the device keypad drive one
// shared state.
package remote

import (
	"context"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/opsdeck/core"
	"pkt.systems/opsdeck/internal/eventbus"
	"pkt.systems/opsdeck/schema"
	"pkt.systems/pslog"
)

// Server exposes the opsdeck display over SSH.
type Server struct {
	Addr               string
	HostKeyPath        string
	AuthorizedKeysPath string
	Listener           net.Listener
	Controller         *core.ModeController
	Store              *core.StateStore
	Bus                *eventbus.Bus
	Logger             pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context
// cancellation. With an empty AuthorizedKeysPath any key is accepted; the
// device is expected to live on an isolated engagement network in that case.
func (s *Server) ListenAndServe(ctx context.Context) error {
	log := s.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:             s.Addr,
		Handler:          s.handleSession,
		PublicKeyHandler: s.handlePublicKey,
	}
	server.AddHostKey(signer)

	log.Info("ssh mirror listening", "addr", s.Addr, "authorized_keys", s.AuthorizedKeysPath)
	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	fingerprint := ssh.FingerprintSHA256(key)
	remote := remoteAddr(ctx)
	log = log.With("remote", remote, "fingerprint", fingerprint)

	if s.AuthorizedKeysPath == "" {
		log.Warn("ssh key accepted without authorized_keys check")
		return true
	}
	authorized, err := LoadAuthorizedKeys(s.AuthorizedKeysPath)
	if err != nil {
		log.Warn("ssh key rejected", "err", err)
		return false
	}
	for _, candidate := range authorized {
		if gliderssh.KeysEqual(candidate, key) {
			log.Info("ssh key accepted")
			return true
		}
	}
	log.Warn("ssh key rejected", "reason", "no matching key")
	return false
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.Logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	remote := sess.RemoteAddr().String()
	log = log.With("remote", remote, "user", sess.User())

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		return
	}

	log.Info("ssh session opened", "term", pty.Term)
	events, unsubscribe := s.Bus.Subscribe()
	if unsubscribe != nil {
		defer unsubscribe()
	}

	ui := newMirrorSession(sess, s.Controller, s.Store, events, log)
	ui.setWidth(pty.Window.Width)
	ui.run(sess.Context(), winCh)

	s.Store.AddAlert("SSH mirror detached: "+remote, schema.AlertInfo)
	log.Info("ssh session closed")
}
