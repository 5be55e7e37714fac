// Package proxy owns the session glue: it pumps DAP traffic between an
// editor endpoint and a debug adapter endpoint, pushing every message through
// the rewriter, and it launches or dials the backend adapter.
package proxy

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/go-logr/logr"

	"github.com/ivywell/nbdap/internal/dap/message"
	"github.com/ivywell/nbdap/internal/dap/rewrite"
	"github.com/ivywell/nbdap/internal/dap/transport"
	"github.com/ivywell/nbdap/internal/notebook"
	"github.com/ivywell/nbdap/internal/sourcemap"
)

// Session bridges one editor connection to one debug adapter. Each direction
// is pumped by a single goroutine, so messages are rewritten and forwarded in
// strict arrival order per direction.
type Session struct {
	id       string
	client   transport.Endpoint
	adapter  transport.Endpoint
	rewriter *rewrite.Rewriter
	registry *notebook.Registry
	traffic  transport.TrafficLogger
	log      logr.Logger

	closeOnce sync.Once
	closeErr  error
}

func NewSession(id string, client, adapter transport.Endpoint, rewriter *rewrite.Rewriter, registry *notebook.Registry, log logr.Logger) *Session {
	return &Session{
		id:       id,
		client:   client,
		adapter:  adapter,
		rewriter: rewriter,
		registry: registry,
		log:      log.WithValues("session", id),
	}
}

// SetTrafficLogger enables transcript logging of the forwarded payloads.
func (s *Session) SetTrafficLogger(logger transport.TrafficLogger) {
	s.traffic = logger
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Run pumps both directions until one side closes or ctx is canceled. A
// normal EOF from either peer is not an error.
func (s *Session) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs <- s.pump(runCtx, s.client, s.adapter, sourcemap.DirectionToServer)
	}()
	go func() {
		defer wg.Done()
		errs <- s.pump(runCtx, s.adapter, s.client, sourcemap.DirectionToEditor)
	}()

	// Closing the endpoints is the only way to unblock a pending read, both
	// for context cancellation and when the other pump fails first.
	go func() {
		<-runCtx.Done()
		_ = s.Close()
	}()

	err := <-errs
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, transport.ErrClosed) {
		return err
	}
	return nil
}

func (s *Session) pump(ctx context.Context, from, to transport.Endpoint, dir sourcemap.Direction) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		payload, err := from.ReadPayload()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msg := s.rewriter.Rewrite(message.Decode(payload), dir)
		out, err := msg.Encode()
		if err != nil {
			// Forward the original rather than dropping the message.
			s.log.V(1).Info("encode failed, forwarding original", "error", err)
			out = payload
		}

		if s.traffic != nil {
			s.traffic.LogTraffic(trafficDirection(dir), msg.SubKind(), msg.Dirty(), out)
		}

		if err := to.WritePayload(out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Close tears down both endpoints and purges the session's cell registry.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.client.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := s.adapter.Close(); err != nil {
			errs = append(errs, err)
		}
		s.registry.RemoveAll()
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func trafficDirection(dir sourcemap.Direction) transport.TrafficDirection {
	if dir == sourcemap.DirectionToEditor {
		return transport.DirectionToEditor
	}
	return transport.DirectionToServer
}
