//go:build !windows && !plan9

package sinks

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/kubesee/kubesee/pkg/kube"
)

// syslogPriority is LOCAL0 (facility 16) * 8 + INFO (severity 6), the fixed
// priority spec.md §6 pins for every syslog message regardless of the
// event's own type.
const syslogPriority = 16*8 + 6

type SyslogConfig struct {
	Network string         `yaml:"network"` // "tcp" or "udp"
	Address string         `yaml:"address"` // host:port
	Tag     string         `yaml:"tag"`
	Layout  map[string]any `yaml:"layout"`
	DeDot   bool           `yaml:"deDot,omitempty"`
}

// SyslogSink writes raw "<134>{tag}: {json}\n" lines to a TCP or UDP
// syslog listener, per spec.md §6's bit-exact wire format -- deliberately
// not log/syslog's RFC 3164 writer, which prepends a timestamp and
// hostname the spec's format does not have.
type SyslogSink struct {
	cfg  *SyslogConfig
	mu   sync.Mutex
	conn net.Conn
}

func NewSyslogSink(cfg *SyslogConfig) (Sink, error) {
	conn, err := net.Dial(cfg.Network, cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("dialing syslog %s %s: %w", cfg.Network, cfg.Address, err)
	}
	return &SyslogSink{cfg: cfg, conn: conn}, nil
}

func (s *SyslogSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.Close()
}

func (s *SyslogSink) Send(ctx context.Context, ev *kube.EnhancedEvent) error {
	out, err := serializeEventWithLayout(s.cfg.Layout, s.cfg.DeDot, ev)
	if err != nil {
		return err
	}

	line := fmt.Sprintf("<%d>%s: %s\n", syslogPriority, s.cfg.Tag, out)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.conn.Write([]byte(line))
	return err
}
