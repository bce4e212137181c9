// Package tcp serves the command language over plain TCP connections.
// Every reply is terminated by the prompt character so scripts can read up
// to it.
package tcp

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/hba.go/pkg/framework"
	"github.com/robotalks/hba.go/pkg/ui"
	"github.com/robotalks/hba.go/pkg/ui/cmdline"
)

// Prompt terminates every reply.
const Prompt = "\\"

// DefaultAddr is the address the daemon listens on.
const DefaultAddr = ":8870"

// Server accepts command connections.
type Server struct {
	Addr    string
	Backend ui.Server

	listener net.Listener
}

// New creates a Server.
func New(addr string, backend ui.Server) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{Addr: addr, Backend: backend}
}

// Listen opens the listening socket. It is called by Run when needed.
func (s *Server) Listen() (net.Addr, error) {
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.Addr)
		if err != nil {
			return nil, err
		}
		s.listener = ln
	}
	return s.listener.Addr(), nil
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "tcp " + s.Addr
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	glog.Infof("listening on %s", s.listener.Addr())
	var wg sync.WaitGroup
	defer wg.Wait()
	return fx.RunWithContextCloser(ctx, s.listener, func() error {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				return err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Serve(ctx, conn)
			}()
		}
	})
}

// Serve runs the command session of one connection until it is closed.
func (s *Server) Serve(ctx context.Context, conn io.ReadWriteCloser) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	lines := bufio.NewScanner(conn)
	for lines.Scan() {
		reply, sub, err := cmdline.Exec(ctx, s.Backend, lines.Text())
		switch {
		case err == cmdline.ErrEmpty:
			reply = ""
		case err != nil:
			reply = cmdline.FormatError(err)
		case sub != nil:
			s.stream(ctx, conn, lines, sub)
			return
		}
		if _, err = io.WriteString(conn, reply+Prompt); err != nil {
			return
		}
	}
	if err := lines.Err(); err != nil {
		glog.V(2).Infof("tcp: %v", err)
	}
}

// stream forwards broadcasts until the peer closes the connection.
func (s *Server) stream(ctx context.Context, conn io.Writer, lines *bufio.Scanner, sub *ui.Subscription) {
	defer sub.Close()
	closedCh := make(chan struct{})
	go func() {
		for lines.Scan() {
		}
		close(closedCh)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closedCh:
			return
		case text, ok := <-sub.C():
			if !ok {
				return
			}
			if _, err := conn.Write(text); err != nil {
				return
			}
		}
	}
}
