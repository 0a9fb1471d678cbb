package kvserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapassos/shardkv/pkg/kvstore"
)

// Server accepts connections on one listener and serves the §6 wire
// protocol against a single *kvstore.Store.
type Server struct {
	store    *kvstore.Store
	logger   *zap.Logger
	listener net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New wraps an already-open store. The caller retains ownership of st and
// is responsible for closing it after the server stops.
func New(st *kvstore.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		store:  st,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds 127.0.0.1:6969 and serves connections until ctx is
// canceled, at which point the listener and every in-flight connection are
// closed so the returned error resolves promptly.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", "127.0.0.1:6969")
	if err != nil {
		return fmt.Errorf("kvserver: listen: %w", err)
	}

	return s.Serve(ctx, ln)
}

// Serve runs the accept loop over an already-bound listener, taking
// ownership of it. Exposed separately from ListenAndServe so tests can bind
// an ephemeral port.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.listener = ln

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		<-gctx.Done()

		err := ln.Close()

		s.closeConns()

		return err
	})

	group.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}

				return fmt.Errorf("kvserver: accept: %w", err)
			}

			s.track(conn)

			group.Go(func() error {
				defer s.untrack(conn)

				handleConn(conn, s.store, s.logger)

				return nil
			})
		}
	})

	err := group.Wait()
	if err != nil && errors.Is(err, net.ErrClosed) {
		return nil
	}

	return err
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// closeConns closes every currently tracked connection, unblocking any
// handleConn goroutine parked in a read so the accept loop's errgroup can
// converge on shutdown. untrack removes each entry as its handler returns.
func (s *Server) closeConns() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

// Addr returns the address the server is bound to, or nil before Serve has
// started listening.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}
