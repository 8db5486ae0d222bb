// Package archive copies exported messages into a real IMAP mailbox so they
// outlive the disposable inbox.
package archive

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/nhle/tempinbox/internal/model"
)

// ErrDisabled is returned when archiving is not configured.
var ErrDisabled = errors.New("archive is not enabled")

// mailbox is the subset of an IMAP session the archiver uses.
type mailbox interface {
	Create(folder string) error
	Append(folder string, data []byte, received time.Time) error
	Close() error
}

// Archiver appends messages to the configured IMAP folder.
type Archiver struct {
	cfg      model.ArchiveConfig
	password string
	log      *zap.Logger
	dial     func(ctx context.Context) (mailbox, error)
}

// New creates an archiver for cfg. The password comes from the keyring.
func New(cfg model.ArchiveConfig, password string, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Archiver{cfg: cfg, password: password, log: log}
	a.dial = a.connect
	return a
}

// Enabled reports whether archiving is configured.
func (a *Archiver) Enabled() bool {
	return a.cfg.Enabled && a.cfg.IMAPHost != ""
}

// Append stores a raw RFC 5322 message in the archive folder, marked as
// seen, creating the folder on first use.
func (a *Archiver) Append(ctx context.Context, data []byte, received time.Time) error {
	if !a.Enabled() {
		return ErrDisabled
	}

	mb, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer mb.Close()

	folder := a.Folder()
	if err := mb.Create(folder); err != nil {
		return err
	}
	if err := mb.Append(folder, data, received); err != nil {
		return fmt.Errorf("appending to %s: %w", folder, err)
	}

	a.log.Info("message archived",
		zap.String("folder", folder),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Folder is the mailbox messages are appended to.
func (a *Archiver) Folder() string {
	if strings.TrimSpace(a.cfg.Folder) == "" {
		return "Archive"
	}
	return a.cfg.Folder
}

// connect dials and authenticates against the configured server. The
// connection is closed when ctx ends, which fails any command still waiting
// on the server.
func (a *Archiver) connect(ctx context.Context) (mailbox, error) {
	port := a.cfg.IMAPPort
	if port == "" {
		port = "993"
	}
	addr := net.JoinHostPort(a.cfg.IMAPHost, port)
	tlsConfig := &tls.Config{ServerName: a.cfg.IMAPHost, NextProtos: []string{"imap"}}

	var conn net.Conn
	var err error
	if a.cfg.TLS {
		d := &tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	var client *imapclient.Client
	if a.cfg.TLS {
		client = imapclient.New(conn, nil)
	} else {
		client, err = imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			stop()
			return nil, fmt.Errorf("starting TLS with %s: %w", addr, ctxErr(ctx, err))
		}
	}

	if err := client.Login(a.cfg.Username, a.password).Wait(); err != nil {
		stop()
		_ = client.Close()
		return nil, fmt.Errorf("authentication failed for %s: %w", a.cfg.Username, ctxErr(ctx, err))
	}

	return &imapMailbox{client: client, stop: stop}, nil
}

// ctxErr prefers the context's error when it caused err.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// imapMailbox adapts an imapclient.Client to mailbox.
type imapMailbox struct {
	client *imapclient.Client
	stop   func() bool
}

// Create makes folder, tolerating one that already exists.
func (m *imapMailbox) Create(folder string) error {
	err := m.client.Create(folder, nil).Wait()
	if err == nil {
		return nil
	}
	var imapErr *imap.Error
	if errors.As(err, &imapErr) && imapErr.Code == imap.ResponseCodeAlreadyExists {
		return nil
	}
	// Some servers omit the response code; the append will fail if the
	// folder is really missing.
	if _, statErr := m.client.Status(folder, &imap.StatusOptions{NumMessages: true}).Wait(); statErr == nil {
		return nil
	}
	return fmt.Errorf("creating folder %s: %w", folder, err)
}

func (m *imapMailbox) Append(folder string, data []byte, received time.Time) error {
	cmd := m.client.Append(folder, int64(len(data)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagSeen},
		Time:  received,
	})
	if _, err := cmd.Write(data); err != nil {
		_ = cmd.Close()
		return err
	}
	if err := cmd.Close(); err != nil {
		return err
	}
	_, err := cmd.Wait()
	return err
}

func (m *imapMailbox) Close() error {
	defer m.stop()
	_ = m.client.Logout().Wait()
	return m.client.Close()
}
