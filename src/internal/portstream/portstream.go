// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package portstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
)

// Resolver returns the upstream host:port for a new connection.
type Resolver func(ctx context.Context) (string, error)

// Info describes a running stream.
type Info struct {
	Key           string    `json:"key"`
	ContainerPort int       `json:"containerPort"`
	HostPort      int       `json:"hostPort"`
	ListenAddr    string    `json:"listenAddr"`
	StartedAt     time.Time `json:"startedAt"`
	Active        int64     `json:"activeConnections"`
	Total         int64     `json:"totalConnections"`
	BytesIn       int64     `json:"bytesIn"`
	BytesOut      int64     `json:"bytesOut"`
}

type stream struct {
	info    Info
	ln      net.Listener
	cancel  context.CancelFunc
	done    chan struct{}
	resolve Resolver

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	active, total, in, out atomic.Int64
}

// Manager owns every active stream. The zero value is not usable.
type Manager struct {
	mu      sync.Mutex
	streams map[string]*stream

	bindHost    string
	dialTimeout time.Duration
	logger      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithBindHost sets the local interface streams listen on. Default 127.0.0.1.
func WithBindHost(host string) Option {
	return func(m *Manager) { m.bindHost = host }
}

// WithDialTimeout bounds the upstream dial. Default 5s.
func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.dialTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager returns an empty manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		streams:     make(map[string]*stream),
		bindHost:    "127.0.0.1",
		dialTimeout: 5 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Key is the identity of a stream: the short container id and the container port.
func Key(shortContainerID string, containerPort int) string {
	return shortContainerID + ":" + strconv.Itoa(containerPort)
}

// Start listens on hostPort (0 picks a free port) and forwards connections to
// whatever resolve returns. The stream runs until [Manager.Stop] or until ctx
// is cancelled.
func (m *Manager) Start(ctx context.Context, key string, containerPort, hostPort int, resolve Resolver) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[key]; ok {
		return Info{}, fmt.Errorf("stream %s: %w", key, apperr.ErrDuplicateLabel)
	}

	addr := net.JoinHostPort(m.bindHost, strconv.Itoa(hostPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Info{}, fmt.Errorf("listen on %s: %w: %w", addr, apperr.ErrInvalidInput, err)
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &stream{
		info: Info{
			Key:           key,
			ContainerPort: containerPort,
			HostPort:      ln.Addr().(*net.TCPAddr).Port,
			ListenAddr:    ln.Addr().String(),
			StartedAt:     time.Now(),
		},
		ln:      ln,
		cancel:  cancel,
		done:    make(chan struct{}),
		resolve: resolve,
		conns:   make(map[net.Conn]struct{}),
	}
	m.streams[key] = s

	go m.serve(sctx, s)
	go func() {
		<-sctx.Done()
		ln.Close()
	}()

	m.logger.Info("port stream started", "key", key, "listen", s.info.ListenAddr)
	return s.snapshot(), nil
}

func (s *stream) snapshot() Info {
	info := s.info
	info.Active = s.active.Load()
	info.Total = s.total.Load()
	info.BytesIn = s.in.Load()
	info.BytesOut = s.out.Load()
	return info
}

func (s *stream) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *stream) untrack(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *stream) closeAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for c := range conns {
		c.Close()
	}
}

func (m *Manager) serve(ctx context.Context, s *stream) {
	defer close(s.done)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer s.closeAll()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
				m.logger.Warn("port stream accept failed", "key", s.info.Key, "error", err)
			}
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.handle(ctx, s, conn)
		}()
	}
}

func (m *Manager) handle(ctx context.Context, s *stream, client net.Conn) {
	defer client.Close()
	if !s.track(client) {
		return
	}
	defer s.untrack(client)

	target, err := s.resolve(ctx)
	if err != nil {
		m.logger.Warn("port stream upstream unresolved", "key", s.info.Key, "error", err)
		fmt.Fprintf(client, "error: %v\n", err)
		return
	}

	d := net.Dialer{Timeout: m.dialTimeout}
	upstream, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		m.logger.Warn("port stream dial failed", "key", s.info.Key, "target", target, "error", err)
		return
	}
	defer upstream.Close()
	if !s.track(upstream) {
		return
	}
	defer s.untrack(upstream)

	s.total.Add(1)
	s.active.Add(1)
	defer s.active.Add(-1)

	var g errgroup.Group
	g.Go(func() error { return pipe(upstream, client, &s.in) })
	g.Go(func() error { return pipe(client, upstream, &s.out) })
	if err := g.Wait(); err != nil && !errors.Is(err, net.ErrClosed) {
		m.logger.Debug("port stream connection ended", "key", s.info.Key, "error", err)
	}
}

// pipe copies src to dst and then half-closes dst so the peer sees EOF.
func pipe(dst, src net.Conn, counter *atomic.Int64) error {
	n, err := io.Copy(dst, src)
	counter.Add(n)
	if tcp, ok := dst.(*net.TCPConn); ok {
		tcp.CloseWrite()
	} else {
		dst.Close()
	}
	return err
}

// Stop closes the stream and every connection it carries, waiting for them to drain.
func (m *Manager) Stop(key string) error {
	m.mu.Lock()
	s, ok := m.streams[key]
	if ok {
		delete(m.streams, key)
	}
	m.mu.Unlock()

	if !ok {
		return apperr.NotFound("stream %s", key)
	}
	s.cancel()
	<-s.done
	m.logger.Info("port stream stopped", "key", key)
	return nil
}

// Get returns the stream registered under key.
func (m *Manager) Get(key string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[key]
	if !ok {
		return Info{}, false
	}
	return s.snapshot(), true
}

// List returns every stream sorted by key.
func (m *Manager) List() []Info {
	m.mu.Lock()
	out := make([]Info, 0, len(m.streams))
	for _, s := range m.streams {
		out = append(out, s.snapshot())
	}
	m.mu.Unlock()

	slices.SortFunc(out, func(a, b Info) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return out
}

// StopAll stops every stream.
func (m *Manager) StopAll() {
	for _, info := range m.List() {
		_ = m.Stop(info.Key)
	}
}
