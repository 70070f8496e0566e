package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/interfaces"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/tracing"
)

type mailboxClient struct {
	cfg *config.MailboxConfig
	log logger.Logger
}

func NewMailboxClient(cfg *config.MailboxConfig, log logger.Logger) interfaces.MailboxClient {
	return &mailboxClient{cfg: cfg, log: log}
}

// Connect dials, logs in and selects the reply folder read-write. Any failure
// is reported as ErrConnection so the caller can abort the whole poll.
func (m *mailboxClient) Connect(ctx context.Context) (interfaces.MailboxSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxClient.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", m.cfg.ImapServer)
	span.SetTag("port", m.cfg.ImapPort)
	span.SetTag("tls", m.cfg.ImapTLS)
	span.SetTag("folder", m.cfg.Folder)

	if m.cfg.ImapServer == "" || m.cfg.ImapUsername == "" {
		err := errors.Wrap(errs.ErrConnection, "imap server is not configured")
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errs.ErrConnection, err.Error())
	}

	serverAddr := fmt.Sprintf("%s:%d", m.cfg.ImapServer, m.cfg.ImapPort)
	dialer := &net.Dialer{
		Timeout:   m.cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error
	if m.cfg.ImapTLS {
		c, err = client.DialWithDialerTLS(dialer, serverAddr, &tls.Config{ServerName: m.cfg.ImapServer})
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(errs.ErrConnection, "failed to connect to %s: %v", serverAddr, err)
	}

	c.Timeout = m.cfg.CommandTimeout

	caps, err := c.Capability()
	if err != nil {
		_ = c.Logout()
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(errs.ErrConnection, "failed to get capabilities: %v", err)
	}
	span.SetTag("server.capabilities", fmt.Sprintf("%v", caps))

	if err = c.Login(m.cfg.ImapUsername, m.cfg.ImapPassword); err != nil {
		_ = c.Logout()
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(errs.ErrConnection, "failed to login as %s: %v", m.cfg.ImapUsername, err)
	}

	mbox, err := c.Select(m.cfg.Folder, false)
	if err != nil {
		_ = c.Logout()
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(errs.ErrConnection, "failed to select %s: %v", m.cfg.Folder, err)
	}
	span.LogKV("messages", mbox.Messages, "unseen", mbox.Unseen)

	m.log.Infof("Connected to %s, folder %s has %d messages", serverAddr, m.cfg.Folder, mbox.Messages)

	return &mailboxSession{c: c, cfg: m.cfg, log: m.log}, nil
}

type mailboxSession struct {
	c   *client.Client
	cfg *config.MailboxConfig
	log logger.Logger
}

func (s *mailboxSession) ListUnread(ctx context.Context) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxSession.ListUnread")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		tracing.TraceErr(span, err)
		if isConnectionError(err) {
			return nil, errors.Wrapf(errs.ErrConnection, "error searching unread messages: %v", err)
		}
		return nil, errors.Wrap(err, "error searching unread messages")
	}
	span.LogKV("unread", len(uids))
	return uids, nil
}

// Fetch reads the full message with BODY.PEEK[] so the \Seen flag is left
// untouched until the message is explicitly marked processed.
func (s *mailboxSession) Fetch(ctx context.Context, uid uint32) (*dto.RawMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailboxSession.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", uid)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		section.FetchItem(),
		imap.FetchUid,
	}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.c.UidFetch(seqSet, items, messages)
	}()

	var fetched *imap.Message
	for msg := range messages {
		if msg.Uid == uid {
			fetched = msg
		}
	}
	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "error fetching message %d", uid)
	}
	if fetched == nil {
		err := fmt.Errorf("message with UID %d not found", uid)
		tracing.TraceErr(span, err)
		return nil, err
	}

	literal := fetched.GetBody(section)
	if literal == nil {
		err := fmt.Errorf("message with UID %d has no body", uid)
		tracing.TraceErr(span, err)
		return nil, err
	}
	raw, err := io.ReadAll(literal)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "error reading message %d", uid)
	}

	return &dto.RawMessage{
		UID:  uid,
		Raw:  raw,
		Seen: hasFlag(fetched.Flags, imap.SeenFlag),
	}, nil
}

func (s *mailboxSession) MarkProcessed(ctx context.Context, uid uint32) error {
	return s.addFlag(ctx, "mailboxSession.MarkProcessed", uid, imap.SeenFlag)
}

func (s *mailboxSession) Flag(ctx context.Context, uid uint32) error {
	return s.addFlag(ctx, "mailboxSession.Flag", uid, imap.FlaggedFlag)
}

func (s *mailboxSession) addFlag(ctx context.Context, operation string, uid uint32, flag string) error {
	span, _ := opentracing.StartSpanFromContext(ctx, operation)
	defer span.Finish()
	span.SetTag("uid", uid)
	span.SetTag("flag", flag)

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.UidStore(seqSet, item, []interface{}{flag}, nil); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to add %s to message %d", flag, uid)
	}
	return nil
}

// Close logs out, bounded so a dead connection cannot block the poller.
func (s *mailboxSession) Close() error {
	s.c.Timeout = 5 * time.Second

	done := make(chan error, 1)
	go func() {
		done <- s.c.Logout()
	}()

	select {
	case err := <-done:
		if err != nil && err != client.ErrAlreadyLoggedOut {
			s.log.Warnf("Error during logout: %v", err)
			return err
		}
		return nil
	case <-time.After(5 * time.Second):
		s.log.Warn("Logout timed out")
		return nil
	}
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if strings.EqualFold(f, flag) {
			return true
		}
	}
	return false
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errorMsg := err.Error()
	return strings.Contains(errorMsg, "connection closed") ||
		strings.Contains(errorMsg, "i/o timeout") ||
		strings.Contains(errorMsg, "EOF") ||
		strings.Contains(errorMsg, "connection reset")
}
