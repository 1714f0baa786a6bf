package remote

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// TermPath is where the WebSocket terminal is served
const TermPath = "/term"

const clientQueueSize = 64

// NewWebSocketHandler serves the session over WebSocket. Every client sees
// all target output; every message a client sends is queued as input.
func NewWebSocketHandler(hub *Hub) http.Handler {
	return websocket.Handler(func(ws *websocket.Conn) {
		defer ws.Close()
		peer := ws.Request().RemoteAddr
		glog.Infof("websocket: %s connected", peer)

		out := make(chan []byte, clientQueueSize)
		unsub := hub.Subscribe(func(p []byte) {
			select {
			case out <- p:
			default:
			}
		})
		defer unsub()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				var data []byte
				if err := websocket.Message.Receive(ws, &data); err != nil {
					glog.V(1).Infof("websocket: %s: %v", peer, err)
					return
				}
				hub.Inject(data)
			}
		}()

		for {
			select {
			case p := <-out:
				if err := websocket.Message.Send(ws, p); err != nil {
					glog.V(1).Infof("websocket: %s: %v", peer, err)
					return
				}
			case <-closed:
				glog.Infof("websocket: %s disconnected", peer)
				return
			}
		}
	})
}

// ListenAndServe serves the WebSocket terminal on addr until ctx is done
func ListenAndServe(ctx context.Context, addr string, hub *Hub) error {
	mux := http.NewServeMux()
	mux.Handle(TermPath, NewWebSocketHandler(hub))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	glog.Infof("websocket: listening on %s%s", addr, TermPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
