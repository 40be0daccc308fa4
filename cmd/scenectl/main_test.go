package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikoskalogridis/scenestate/internal/ipc"
	"github.com/nikoskalogridis/scenestate/internal/msg"
)

type recordingPublisher struct {
	mu  sync.Mutex
	got []msg.Message
}

func (r *recordingPublisher) Publish(m msg.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, m)
	return nil
}

func (r *recordingPublisher) messages() []msg.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]msg.Message(nil), r.got...)
}

// startIPC serves on a short temp path; unix socket paths are length-limited.
func startIPC(t *testing.T) (string, *recordingPublisher) {
	t.Helper()
	dir, err := os.MkdirTemp("", "scenectl")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	pub := &recordingPublisher{}
	srv, err := ipc.Listen(path, pub, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return path, pub
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPublish_ValidatesAndSends(t *testing.T) {
	sock, pub := startIPC(t)

	_, err := execute(t, "", "--socket", sock, "publish", "carState", `{"vEgo": 12.5}`)
	require.NoError(t, err)

	_, err = execute(t, `{"started": true}`, "--socket", sock, "publish", "deviceState", "-")
	require.NoError(t, err)

	_, err = execute(t, "", "--socket", sock, "publish", "radarState")
	require.NoError(t, err)

	got := pub.messages()
	require.Len(t, got, 3)
	assert.Equal(t, 12.5, got[0].(msg.CarState).VEgo)
	assert.True(t, got[1].(msg.DeviceState).Started)
	assert.Equal(t, msg.TopicRadarState, got[2].Topic())
}

func TestPublish_RejectsUnknownTopicLocally(t *testing.T) {
	sock, pub := startIPC(t)

	_, err := execute(t, "", "--socket", sock, "publish", "bogus", `{}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, msg.ErrUnknownTopic)
	assert.Empty(t, pub.messages())
}

func TestPublish_Raw(t *testing.T) {
	sock, pub := startIPC(t)

	_, err := execute(t, "", "--socket", sock, "publish", "--raw", `{"topic":"carState","data":{"vEgo":3}}`)
	require.NoError(t, err)
	require.Len(t, pub.messages(), 1)

	// The daemon rejects the bad envelope.
	_, err = execute(t, "", "--socket", sock, "publish", "--raw", `{"topic":"nope"}`)
	require.Error(t, err)

	_, err = execute(t, "", "--socket", sock, "publish", "--raw", "a", "b")
	require.Error(t, err)
}

func TestReplay(t *testing.T) {
	sock, pub := startIPC(t)

	input := `# recorded drive
{"topic":"deviceState","data":{"started":true}}

{"topic":"carState","data":{"vEgo":1}}
{"topic":"carState","data":{"vEgo":2}}
`
	out, err := execute(t, input, "--socket", sock, "replay")
	require.NoError(t, err)
	assert.Contains(t, out, "replayed 3 messages")
	require.Len(t, pub.messages(), 3)

	file := filepath.Join(t.TempDir(), "drive.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(input), 0o644))
	_, err = execute(t, "", "--socket", sock, "replay", "--rate", "1000", file)
	require.NoError(t, err)
	assert.Len(t, pub.messages(), 6)
}

func TestReadEnvelopes_FailsWholeBatch(t *testing.T) {
	_, err := readEnvelopes(strings.NewReader("{\"topic\":\"carState\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParamCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "params.db")

	_, err := execute(t, "", "param", "set", "--db", db, "IsMetric", "1")
	require.NoError(t, err)
	_, err = execute(t, "", "param", "set", "--db", db, "EndToEndToggle", "0")
	require.NoError(t, err)

	out, err := execute(t, "", "param", "get", "--db", db, "IsMetric")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = execute(t, "", "param", "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "EndToEndToggle=0\nIsMetric=1\n", out)

	_, err = execute(t, "", "param", "get", "--db", db, "Missing")
	require.Error(t, err)

	_, err = execute(t, "", "param", "get", "IsMetric")
	require.Error(t, err, "--db is required")
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	ok, err := printEvent(&buf, []byte(`{"type":"scene_update","data":{"frame":1}}`), map[string]bool{"display_power": true}, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, buf.String())

	ok, err = printEvent(&buf, []byte(`{"type":"display_power","data":{"on":true}}`), map[string]bool{"display_power": true}, true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, buf.String(), "\n  \"data\"")
}

func TestWatch_PrintsUntilCount(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range []string{
			`{"type":"state_init","data":{"frame":1}}`,
			`{"type":"scene_update","data":{"frame":2}}`,
			`{"type":"onroad_changed","data":{"onroad":true}}`,
			`{"type":"scene_update","data":{"frame":3}}`,
		} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// Hold the connection until the client leaves.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	done := make(chan struct{})
	var out string
	var err error
	go func() {
		defer close(done)
		out, err = execute(t, "", "--http", addr, "watch", "--type", "scene_update", "--count", "2")
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("watch did not exit")
	}
	require.NoError(t, err)
	assert.Equal(t, "{\"type\":\"scene_update\",\"data\":{\"frame\":2}}\n{\"type\":\"scene_update\",\"data\":{\"frame\":3}}\n", out)
}

func TestSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/snapshot" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"frame":5}`))
	}))
	defer srv.Close()

	out, err := execute(t, "", "--http", strings.TrimPrefix(srv.URL, "http://"), "snapshot")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"frame\": 5\n}\n", out)
}

func TestSnapshot_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := execute(t, "", "--http", strings.TrimPrefix(srv.URL, "http://"), "snapshot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshot yet")
}
