package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	fluid "github.com/esimov/ascii-lbm/fluid-solver"
	"github.com/esimov/ascii-lbm/shapes"
)

// Message types understood by the server.
const (
	MsgBarrier   = "barrier"
	MsgClear     = "clear"
	MsgReset     = "reset"
	MsgToggle    = "toggle"
	MsgViscosity = "viscosity"
	MsgSpeed     = "speed"
	MsgShape     = "shape"

	MsgAck   = "ack"
	MsgError = "error"
	MsgFrame = "frame"
)

type HttpParams struct {
	Address string
	Prefix  string
	Root    string
}

// Message is a request sent by a client. Only the fields used by its type
// need to be set.
type Message struct {
	Type  string  `json:"type"`
	X     int     `json:"x,omitempty"`
	Y     int     `json:"y,omitempty"`
	Erase bool    `json:"erase,omitempty"`
	Value float64 `json:"value,omitempty"`
	Shape string  `json:"shape,omitempty"`
	Size  int     `json:"size,omitempty"`
}

// Reply answers every Message, in the order they were received.
type Reply struct {
	Type    string `json:"type"`
	Request string `json:"request"`
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

// FrameMessage is broadcast to every client after each frame.
type FrameMessage struct {
	Type    string    `json:"type"`
	Step    int       `json:"step"`
	XDim    int       `json:"xdim"`
	YDim    int       `json:"ydim"`
	Curl    []float64 `json:"curl"`
	Speed2  []float64 `json:"speed2"`
	Barrier []bool    `json:"barrier"`
	Running bool      `json:"running"`
}

// A server application calls the Upgrade method from an HTTP request handler to initiate a connection.
// Cross-origin handshakes are refused.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const writeWait = 5 * time.Second

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Server exposes a solver to browser clients: frames go out over the
// websocket, edits and controls come back in.
type Server struct {
	solver  *fluid.Solver
	runner  *fluid.Runner
	params  HttpParams
	metrics http.Handler
	log     logrus.FieldLogger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewServer builds a server. metrics may be nil.
func NewServer(s *fluid.Solver, r *fluid.Runner, p HttpParams, metrics http.Handler, log logrus.FieldLogger) *Server {
	return &Server{
		solver:  s,
		runner:  r,
		params:  p,
		metrics: metrics,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the routes of the server: /ws, /metrics and the static
// files under the configured prefix.
func (s *Server) Handler() (http.Handler, error) {
	root, err := filepath.Abs(s.params.Root)
	if err != nil {
		return nil, err
	}
	prefix := s.params.Prefix
	if prefix == "" {
		prefix = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.wsHandler)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(root))))
	s.log.WithFields(logrus.Fields{"root": root, "prefix": prefix}).Debug("serving static files")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.WithFields(logrus.Fields{
			"remote": r.RemoteAddr,
			"method": r.Method,
			"url":    r.URL.String(),
		}).Debug("request")
		mux.ServeHTTP(w, r)
	}), nil
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:    s.params.Address,
		Handler: handler,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("address", s.params.Address).Info("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// Broadcast sends f to every connected client. Clients that cannot keep up
// are dropped.
func (s *Server) Broadcast(f fluid.Frame) {
	msg := FrameMessage{
		Type:    MsgFrame,
		Step:    f.Step,
		XDim:    f.XDim,
		YDim:    f.YDim,
		Curl:    finite(f.Curl),
		Speed2:  finite(f.Speed2),
		Barrier: f.Barrier,
		Running: s.running(),
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			s.log.WithError(err).Debug("dropping client")
			s.remove(c)
		}
	}
}

// finite returns vals with NaN and infinite entries replaced by 0, which JSON
// cannot encode. vals is returned as is when every entry is finite.
func finite(vals []float64) []float64 {
	var out []float64
	for i, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			if out != nil {
				out[i] = v
			}
			continue
		}
		if out == nil {
			out = make([]float64, len(vals))
			copy(out, vals[:i])
		}
		out[i] = 0
	}
	if out == nil {
		return vals
	}
	return out
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) running() bool {
	return s.runner != nil && s.runner.Running()
}

func (s *Server) add(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.conn.Close()
	}
	s.mu.Unlock()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
		delete(s.clients, c)
	}
	s.mu.Unlock()
}

// wsHandler defines the websocket connection endpoint
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	// Upgrade the http connection to a WebSocket connection
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		var herr websocket.HandshakeError
		if !errors.As(err, &herr) {
			s.log.WithError(err).Warn("websocket upgrade failed")
		}
		return
	}
	c := &client{conn: conn}
	s.add(c)
	s.log.WithField("remote", r.RemoteAddr).Info("client connected")

	go s.readSocket(c)
}

// readSocket listen for new messages being sent to the websocket
func (s *Server) readSocket(c *client) {
	defer s.remove(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.WithError(err).Warn("websocket read")
			}
			return
		}

		var msg Message
		reply := Reply{Type: MsgAck}
		if err := json.Unmarshal(data, &msg); err != nil {
			reply.Type, reply.Error = MsgError, fmt.Sprintf("malformed message: %v", err)
		} else if err := s.handle(msg); err != nil {
			reply.Type, reply.Error = MsgError, err.Error()
		}
		reply.Request = msg.Type
		reply.Running = s.running()

		if reply.Type == MsgError {
			s.log.WithField("request", msg.Type).Debug(reply.Error)
		}
		if err := c.send(reply); err != nil {
			s.log.WithError(err).Debug("websocket write")
			return
		}
	}
}

func (s *Server) handle(msg Message) error {
	switch msg.Type {
	case MsgBarrier:
		return s.solver.SetBarrier(msg.X, msg.Y, !msg.Erase)
	case MsgClear:
		s.solver.ClearBarriers()
	case MsgReset:
		s.solver.Reset()
	case MsgToggle:
		if s.runner == nil {
			return errors.New("no runner attached")
		}
		s.runner.Toggle()
	case MsgViscosity:
		return s.solver.SetViscosity(msg.Value)
	case MsgSpeed:
		s.solver.SetInflowSpeed(msg.Value)
	case MsgShape:
		xdim, ydim := s.solver.Size()
		pts, err := shapes.Preset(msg.Shape, xdim, ydim, msg.Size)
		if err != nil {
			return err
		}
		s.solver.ClearBarriers()
		return s.solver.SetBarriers(pts, true)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}
