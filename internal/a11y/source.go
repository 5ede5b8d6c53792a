package a11y

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"typeahead/internal/logging"
)

// Source delivers the accessibility callback stream. The stream is assumed
// well formed at the event level; individual undecodable lines are dropped.
type Source interface {
	// Events returns the delivery channel. It is closed when the source
	// shuts down.
	Events() <-chan Event

	// Run accepts and decodes bridge connections until ctx is cancelled.
	Run(ctx context.Context) error
}

// Oversized lines are truncated by bufio.Scanner; a full document snapshot
// of a large text field fits well under this.
const maxEventLine = 1 << 20

// SocketSource listens on a Unix socket for the bridge process and decodes
// its newline-delimited JSON event stream. One bridge connection at a time;
// a new connection supersedes the old one.
type SocketSource struct {
	path   string
	events chan Event

	mu       sync.Mutex
	listener net.Listener
}

// NewSocketSource creates a source bound to the given socket path. A stale
// socket file from a previous run is removed.
func NewSocketSource(path string) (*SocketSource, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("a11y: remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("a11y: listen on %s: %w", path, err)
	}
	return &SocketSource{
		path:     path,
		events:   make(chan Event, 64),
		listener: ln,
	}, nil
}

// Events implements Source.
func (s *SocketSource) Events() <-chan Event {
	return s.events
}

// Run implements Source. It returns once ctx is cancelled or the listener
// fails permanently.
func (s *SocketSource) Run(ctx context.Context) error {
	defer close(s.events)
	defer os.Remove(s.path)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		_ = s.listener.Close()
		s.mu.Unlock()
	}()

	log := logging.Get(logging.CategoryA11y)
	log.Info("listening for accessibility bridge on %s", s.path)

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("a11y: accept: %w", err)
		}
		log.Info("bridge connected")
		s.serve(ctx, conn)
		log.Info("bridge disconnected")
	}
}

func (s *SocketSource) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	log := logging.Get(logging.CategoryA11y)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxEventLine)

	for scanner.Scan() {
		ev, err := DecodeEvent(scanner.Bytes())
		if err != nil {
			// Malformed lines are dropped, the stream continues.
			log.Debug("dropping event: %v", err)
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		log.Warn("bridge read error: %v", err)
	}
}
