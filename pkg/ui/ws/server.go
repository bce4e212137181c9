// Package ws serves the command language over WebSocket. Each text message
// is one command line and each reply is sent as one message.
package ws

import (
	"context"
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/hba.go/pkg/framework"
	"github.com/robotalks/hba.go/pkg/ui"
	"github.com/robotalks/hba.go/pkg/ui/cmdline"
)

// Path is where the console is served.
const Path = "/hba"

// Server is the WebSocket console.
type Server struct {
	Addr    string
	Backend ui.Server
}

// New creates a Server.
func New(addr string, backend ui.Server) *Server {
	return &Server{Addr: addr, Backend: backend}
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "ws " + s.Addr
}

// Handler returns the http.Handler of the console.
func (s *Server) Handler(ctx context.Context) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		s.Serve(ctx, conn)
	})
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(Path, s.Handler(ctx))
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	glog.Infof("websocket console on %s%s", s.Addr, Path)
	return fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
}

// Serve runs the session of one connection.
func (s *Server) Serve(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	msgCh := make(chan string)
	go func() {
		defer close(msgCh)
		for {
			var msg string
			if err := websocket.Message.Receive(conn, &msg); err != nil {
				glog.V(2).Infof("ws: %v", err)
				return
			}
			select {
			case msgCh <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	var sub *ui.Subscription
	defer func() {
		if sub != nil {
			sub.Close()
		}
	}()
	for {
		var subCh <-chan []byte
		if sub != nil {
			subCh = sub.C()
		}
		select {
		case <-ctx.Done():
			return
		case text, ok := <-subCh:
			if !ok {
				sub = nil
				continue
			}
			if websocket.Message.Send(conn, string(text)) != nil {
				return
			}
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			reply, newSub, err := cmdline.Exec(ctx, s.Backend, msg)
			switch {
			case err == cmdline.ErrEmpty:
				continue
			case err != nil:
				reply = cmdline.FormatError(err)
			case newSub != nil:
				if sub != nil {
					sub.Close()
				}
				sub = newSub
				continue
			}
			if websocket.Message.Send(conn, reply) != nil {
				return
			}
		}
	}
}
