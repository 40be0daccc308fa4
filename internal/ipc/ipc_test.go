package ipc

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikoskalogridis/scenestate/internal/msg"
	"github.com/nikoskalogridis/scenestate/internal/submaster"
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

func startServer(t *testing.T, pub Publisher) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "ipc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	srv, err := Listen(path, pub, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("IPC server did not stop")
		}
	})
	return path
}

func TestSend_PublishesMessages(t *testing.T) {
	pub := &recordingPublisher{}
	path := startServer(t, pub)

	require.NoError(t, Send(path, msg.CarState{VEgo: 12}, msg.DeviceState{Started: true}))

	got := pub.messages()
	require.Len(t, got, 2)
	assert.Equal(t, msg.CarState{VEgo: 12}, got[0])
	assert.Equal(t, msg.TopicDeviceState, got[1].Topic())
}

func TestSendRaw_Errors(t *testing.T) {
	pub := &recordingPublisher{}
	path := startServer(t, pub)

	err := SendRaw(path, []byte(`{"topic":"nope","data":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown topic")

	err = SendRaw(path, []byte(`not json`))
	assert.Error(t, err)

	require.NoError(t, SendRaw(path, []byte(`{"topic":"carState","data":{"vEgo":3}}`)))
	assert.Len(t, pub.messages(), 1)
}

func TestSend_IntoSubMaster(t *testing.T) {
	sm, err := submaster.New([]msg.Topic{msg.TopicCarState})
	require.NoError(t, err)
	path := startServer(t, sm)

	require.NoError(t, Send(path, msg.CarState{AEgo: 1.5}))
	err = Send(path, msg.DeviceState{})
	assert.Error(t, err, "topic outside the subscription set")

	sm.Poll()
	assert.True(t, sm.Updated(msg.TopicCarState))
	assert.Equal(t, 1.5, submaster.Get[msg.CarState](sm, msg.TopicCarState).AEgo)
}

func TestServe_RemovesSocketOnShutdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.sock")
	srv, err := Listen(path, &recordingPublisher{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	cancel()
	require.NoError(t, <-done)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSend_NoServer(t *testing.T) {
	assert.Error(t, Send(filepath.Join(t.TempDir(), "missing.sock"), msg.CarState{}))
}
