// Package mail reads newsletters from an IMAP mailbox or from local .eml
// files and turns them into core.Message values.
package mail

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/sirupsen/logrus"

	"github.com/gaurav-prasanna/newsfold/core"
)

// Config locates and authenticates against an IMAP server.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS selects implicit TLS; otherwise STARTTLS is used.
	TLS     bool
	Mailbox string
}

// IMAPSource implements core.MailSource over a single lazily opened IMAP
// session. It is safe for sequential use from multiple goroutines.
type IMAPSource struct {
	cfg Config
	log logrus.FieldLogger

	// dial overrides the TLS dialers; set by tests.
	dial func(addr string) (*imapclient.Client, error)

	mu     sync.Mutex
	client *imapclient.Client
}

// NewIMAPSource creates a source; no connection is made until first use.
func NewIMAPSource(cfg Config, log logrus.FieldLogger) *IMAPSource {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &IMAPSource{cfg: cfg, log: log}
}

// session returns the connected client with the mailbox selected.
// Callers hold s.mu.
func (s *IMAPSource) session(ctx context.Context) (*imapclient.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.client != nil {
		return s.client, nil
	}

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	var client *imapclient.Client
	var err error
	switch {
	case s.dial != nil:
		client, err = s.dial(addr)
	case s.cfg.TLS:
		client, err = imapclient.DialTLS(addr, nil)
	default:
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(s.cfg.Username, s.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authentication failed for %s: %w", s.cfg.Username, err)
	}
	if _, err := client.Select(s.cfg.Mailbox, nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting %s: %w", s.cfg.Mailbox, err)
	}

	s.log.WithFields(logrus.Fields{"addr": addr, "mailbox": s.cfg.Mailbox}).Debug("IMAP session opened")
	s.client = client
	return client, nil
}

// Close logs out of the session if one is open.
func (s *IMAPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Logout().Wait()
	s.client = nil
	return err
}

// searchCriteria maps a query onto IMAP SEARCH keys. Since and Before
// have day granularity on the server.
func searchCriteria(q core.MessageQuery) *imap.SearchCriteria {
	criteria := &imap.SearchCriteria{
		Since:  q.Since,
		Before: q.Before,
	}
	if q.From != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{Key: "From", Value: q.From})
	}
	if q.Subject != "" {
		criteria.Header = append(criteria.Header, imap.SearchCriteriaHeaderField{Key: "Subject", Value: q.Subject})
	}
	return criteria
}

// List searches the mailbox and returns envelopes of the most recent
// matches, oldest first.
func (s *IMAPSource) List(ctx context.Context, q core.MessageQuery) ([]core.MessageSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	searchData, err := client.UIDSearch(searchCriteria(q), nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if q.Limit > 0 && len(uids) > q.Limit {
		uids = uids[len(uids)-q.Limit:]
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope: true,
		UID:      true,
	})
	defer fetchCmd.Close()

	var summaries []core.MessageSummary
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			s.log.WithError(err).Warn("skipping unreadable envelope")
			continue
		}
		summaries = append(summaries, summaryFromBuffer(buf))
	}
	if err := fetchCmd.Close(); err != nil {
		return summaries, fmt.Errorf("fetching envelopes: %w", err)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].UID < summaries[j].UID
	})
	return summaries, nil
}

// Fetch downloads and parses the full message without setting \Seen.
func (s *IMAPSource) Fetch(ctx context.Context, uid uint32) (*core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	data := fetchCmd.Next()
	if data == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}
	buf, err := data.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	raw := buf.FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message UID %d has no body", uid)
	}
	msg, err := ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing message UID %d: %w", uid, err)
	}
	msg.UID = uid
	if msg.ID == "" && buf.Envelope != nil {
		msg.ID = buf.Envelope.MessageID
	}

	if err := fetchCmd.Close(); err != nil {
		return msg, fmt.Errorf("closing fetch: %w", err)
	}
	return msg, nil
}

// MarkSeen adds the \Seen flag to a message.
func (s *IMAPSource) MarkSeen(ctx context.Context, uid uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := s.session(ctx)
	if err != nil {
		return err
	}

	storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("marking UID %d seen: %w", uid, err)
	}
	return nil
}

func summaryFromBuffer(buf *imapclient.FetchMessageBuffer) core.MessageSummary {
	sum := core.MessageSummary{UID: uint32(buf.UID)}
	if buf.Envelope == nil {
		return sum
	}
	sum.ID = buf.Envelope.MessageID
	sum.Subject = buf.Envelope.Subject
	sum.Date = buf.Envelope.Date
	if len(buf.Envelope.From) > 0 {
		from := buf.Envelope.From[0]
		if from.Name != "" {
			sum.From = from.Name
		} else {
			sum.From = from.Addr()
		}
	}
	return sum
}

// ProcessedID is the ledger key of a message: its Message-ID, or its UID
// when the header is missing.
func ProcessedID(messageID string, uid uint32) string {
	if messageID != "" {
		return messageID
	}
	return "uid:" + strconv.FormatUint(uint64(uid), 10)
}
