// Package ipc carries topic messages into the scene daemon over a Unix
// domain socket.
//
// Protocol: line-delimited JSON.
//   - Client sends: {"topic": "carState", "data": {...}}
//   - Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/nikoskalogridis/scenestate/internal/msg"
)

// maxLineBytes bounds a single message; model outputs run to tens of KB.
const maxLineBytes = 1 << 20

// Response is sent back to IPC clients for every line.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Publisher accepts decoded messages. *submaster.SubMaster satisfies it.
type Publisher interface {
	Publish(m msg.Message) error
}

// Server accepts IPC connections on a Unix socket.
type Server struct {
	ln     net.Listener
	path   string
	pub    Publisher
	logger *slog.Logger
}

// Listen binds socketPath, replacing any stale socket file.
func Listen(socketPath string, pub Publisher, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0o666); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return &Server{ln: ln, path: socketPath, pub: pub, logger: logger}, nil
}

// Addr returns the socket path.
func (s *Server) Addr() string { return s.path }

// Serve accepts connections until ctx is cancelled, then removes the socket.
func (s *Server) Serve(ctx context.Context) error {
	defer os.Remove(s.path)
	defer s.ln.Close()

	s.logger.Info("IPC listening", "socket", s.path)

	// Closing the listener unblocks Accept.
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				s.logger.Debug("IPC listener closed")
				return nil
			}
			s.logger.Error("IPC accept error", "error", err)
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	s.logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	encoder := json.NewEncoder(conn)

	reply := func(r Response) {
		if err := encoder.Encode(r); err != nil {
			s.logger.Error("IPC failed to send response", "error", err)
		}
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		m, err := msg.Unmarshal(line)
		if err != nil {
			s.logger.Debug("IPC rejected message", "error", err)
			reply(Response{Status: "error", Error: fmt.Sprintf("parse message: %v", err)})
			continue
		}
		if err := s.pub.Publish(m); err != nil {
			reply(Response{Status: "error", Error: err.Error()})
			continue
		}
		reply(Response{Status: "ok"})
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("IPC connection read error", "error", err)
	}
	s.logger.Debug("IPC connection closed")
}

// Send publishes messages to the daemon at socketPath and waits for each
// response. It stops at the first rejected message.
func Send(socketPath string, ms ...msg.Message) error {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	for _, m := range ms {
		data, err := msg.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		var resp Response
		if err := decoder.Decode(&resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if resp.Status != "ok" {
			return fmt.Errorf("ipc error: %s", resp.Error)
		}
	}
	return nil
}

// SendRaw sends one pre-encoded envelope line, as typed by a user.
func SendRaw(socketPath string, line []byte) error {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(line))); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}
	return nil
}
