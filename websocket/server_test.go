package websocket

import (
	"encoding/json"
	"io/ioutil"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fluid "github.com/esimov/ascii-lbm/fluid-solver"
)

type testEnv struct {
	solver *fluid.Solver
	runner *fluid.Runner
	server *Server
	http   *httptest.Server
}

func newTestEnv(t *testing.T, root string) *testEnv {
	t.Helper()
	s, err := fluid.NewSolver(40, 16)
	require.NoError(t, err)
	r := fluid.NewRunner(s, 1, time.Millisecond)

	logger, _ := test.NewNullLogger()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("lbm_steps_total 0\n"))
	})
	srv := NewServer(s, r, HttpParams{Address: "127.0.0.1:0", Prefix: "/", Root: root}, metrics, logger)
	h, err := srv.Handler()
	require.NoError(t, err)

	env := &testEnv{solver: s, runner: r, server: srv, http: httptest.NewServer(h)}
	t.Cleanup(env.http.Close)
	return env
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// request sends msg and waits for its reply, skipping frames.
func request(t *testing.T, conn *websocket.Conn, msg Message) Reply {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var raw map[string]interface{}
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &raw))
		if raw["type"] == MsgFrame {
			continue
		}
		var reply Reply
		require.NoError(t, json.Unmarshal(data, &reply))
		return reply
	}
}

func TestBarrierMessages(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	conn := env.dial(t)

	reply := request(t, conn, Message{Type: MsgBarrier, X: 5, Y: 6})
	assert.Equal(t, Reply{Type: MsgAck, Request: MsgBarrier}, reply)
	barrier, err := env.solver.IsBarrierAt(5, 6)
	require.NoError(t, err)
	assert.True(t, barrier)

	reply = request(t, conn, Message{Type: MsgBarrier, X: 5, Y: 6, Erase: true})
	assert.Equal(t, MsgAck, reply.Type)
	barrier, _ = env.solver.IsBarrierAt(5, 6)
	assert.False(t, barrier)

	reply = request(t, conn, Message{Type: MsgBarrier, X: 40, Y: 0})
	assert.Equal(t, MsgError, reply.Type)
	assert.Contains(t, reply.Error, "outside the lattice")
	assert.Zero(t, env.solver.BarrierCount())
}

func TestControlMessages(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	conn := env.dial(t)

	reply := request(t, conn, Message{Type: MsgShape, Shape: "line", Size: 8})
	assert.Equal(t, MsgAck, reply.Type, reply.Error)
	assert.Equal(t, 8, env.solver.BarrierCount())

	reply = request(t, conn, Message{Type: MsgShape, Shape: "blob", Size: 8})
	assert.Equal(t, MsgError, reply.Type)
	assert.Equal(t, 8, env.solver.BarrierCount())

	reply = request(t, conn, Message{Type: MsgClear})
	assert.Equal(t, MsgAck, reply.Type)
	assert.Zero(t, env.solver.BarrierCount())

	reply = request(t, conn, Message{Type: MsgViscosity, Value: 0.05})
	assert.Equal(t, MsgAck, reply.Type)
	assert.Equal(t, 0.05, env.solver.Viscosity())

	reply = request(t, conn, Message{Type: MsgViscosity, Value: -1})
	assert.Equal(t, MsgError, reply.Type)
	assert.Equal(t, 0.05, env.solver.Viscosity())

	reply = request(t, conn, Message{Type: MsgSpeed, Value: 0.08})
	assert.Equal(t, MsgAck, reply.Type)
	assert.Equal(t, 0.08, env.solver.InflowSpeed())

	env.solver.Step()
	reply = request(t, conn, Message{Type: MsgReset})
	assert.Equal(t, MsgAck, reply.Type)
	assert.Zero(t, env.solver.Steps())

	reply = request(t, conn, Message{Type: MsgToggle})
	assert.True(t, reply.Running)
	reply = request(t, conn, Message{Type: MsgToggle})
	assert.False(t, reply.Running)

	reply = request(t, conn, Message{Type: "explode"})
	assert.Equal(t, MsgError, reply.Type)
	assert.Equal(t, "explode", reply.Request)
}

func TestMalformedMessage(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	conn := env.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var reply Reply
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, MsgError, reply.Type)
	assert.Contains(t, reply.Error, "malformed")
}

func TestBroadcast(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	conn := env.dial(t)
	// the ack proves the client is registered
	request(t, conn, Message{Type: MsgBarrier, X: 1, Y: 1})
	assert.Equal(t, 1, env.server.Clients())

	env.solver.Step()
	env.server.Broadcast(env.solver.Snapshot())

	var frame FrameMessage
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, MsgFrame, frame.Type)
	assert.Equal(t, 1, frame.Step)
	assert.Equal(t, 40, frame.XDim)
	assert.Equal(t, 16, frame.YDim)
	assert.Len(t, frame.Curl, 40*16)
	assert.True(t, frame.Barrier[1+40*1])
}

func TestBroadcastDivergedFrame(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	conn := env.dial(t)
	request(t, conn, Message{Type: MsgClear})

	f := env.solver.Snapshot()
	f.Curl = append([]float64(nil), f.Curl...)
	f.Speed2 = append([]float64(nil), f.Speed2...)
	f.Curl[3] = math.NaN()
	f.Speed2[4] = math.Inf(1)
	env.server.Broadcast(f)

	var frame FrameMessage
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, MsgFrame, frame.Type)
	assert.Zero(t, frame.Curl[3])
	assert.Zero(t, frame.Speed2[4])
	assert.Equal(t, 1, env.server.Clients())
	assert.True(t, math.IsNaN(f.Curl[3]), "the frame itself is left alone")
}

func TestFinite(t *testing.T) {
	vals := []float64{1, 2, 3}
	out := finite(vals)
	assert.Equal(t, vals, out)
	assert.Equal(t, &vals[0], &out[0])

	vals = []float64{1, math.NaN(), 3, math.Inf(-1), 5}
	assert.Equal(t, []float64{1, 0, 3, 0, 5}, finite(vals))
	assert.True(t, math.IsNaN(vals[1]))
}

func TestCrossOriginRefused(t *testing.T) {
	env := newTestEnv(t, t.TempDir())
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://elsewhere.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {env.http.URL}})
	require.NoError(t, err)
	conn.Close()
}

func TestStaticAndMetricsRoutes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "index.html"), []byte("<canvas></canvas>"), 0644))
	env := newTestEnv(t, root)

	resp, err := http.Get(env.http.URL + "/index.html")
	require.NoError(t, err)
	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<canvas></canvas>", string(body))

	resp, err = http.Get(env.http.URL + "/metrics")
	require.NoError(t, err)
	body, _ = ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "lbm_steps_total")
}
