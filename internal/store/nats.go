package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// KeyHeader carries the record key on published messages.
const KeyHeader = "Bfrb-Key"

// NATS publishes every record to subject.<user> for a downstream writer to
// persist. Reads are served from the records this process published.
type NATS struct {
	Subject string

	nc  *nats.Conn
	mem *Memory
}

// DialNATS connects to url. The connection reconnects on its own.
func DialNATS(url, subject string) (*NATS, error) {
	nc, err := nats.Connect(
		url,
		nats.Name("bfrb-mobiled"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATS{Subject: subject, nc: nc, mem: NewMemory()}, nil
}

// SubjectFor returns the subject a key is published on.
func SubjectFor(base, key string) string {
	user := "unknown"
	if parts := strings.Split(key, "/"); len(parts) >= 2 && parts[0] == "users" {
		user = parts[1]
	}
	user = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(user)
	return base + "." + user
}

func (s *NATS) Put(ctx context.Context, key string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: SubjectFor(s.Subject, key),
		Data:    b,
		Header:  nats.Header{},
	}
	msg.Header.Set(KeyHeader, key)
	if err := s.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	if err := s.nc.FlushTimeout(3 * time.Second); err != nil {
		return fmt.Errorf("flush %s: %w", msg.Subject, err)
	}
	return s.mem.Put(ctx, key, e)
}

func (s *NATS) Get(ctx context.Context, key string) (Entry, error) {
	return s.mem.Get(ctx, key)
}

func (s *NATS) List(ctx context.Context, prefix, date string) ([]Record, error) {
	return s.mem.List(ctx, prefix, date)
}

func (s *NATS) Close() error {
	return s.nc.Drain()
}
