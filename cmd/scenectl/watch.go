package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	var (
		path   string
		types  []string
		count  int
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream scene events from the WebSocket endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := url.URL{Scheme: "ws", Host: g.httpAddr, Path: path}
			return watch(cmd, u.String(), types, count, pretty)
		},
	}
	f := cmd.Flags()
	f.StringVar(&path, "path", "/ws", "WebSocket path")
	f.StringSliceVar(&types, "type", nil, "Only print these event types (repeatable)")
	f.IntVar(&count, "count", 0, "Exit after this many printed events (0 runs until interrupted)")
	f.BoolVar(&pretty, "pretty", false, "Indent JSON output")
	return cmd
}

func watch(cmd *cobra.Command, wsURL string, types []string, count int, pretty bool) error {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := d.DialContext(cmd.Context(), wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", wsURL, err)
	}
	defer conn.Close()

	// Unblock ReadMessage on interrupt.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-cmd.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	printed := 0
	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if cmd.Context().Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if mt != websocket.TextMessage {
			continue
		}
		ok, err := printEvent(cmd.OutOrStdout(), message, want, pretty)
		if err != nil {
			return err
		}
		if ok {
			printed++
			if count > 0 && printed >= count {
				return nil
			}
		}
	}
}

// printEvent writes one envelope if its type passes the filter.
func printEvent(w io.Writer, message []byte, want map[string]bool, pretty bool) (bool, error) {
	if len(want) > 0 {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &env); err != nil || !want[env.Type] {
			return false, nil
		}
	}
	out := message
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, message, "", "  "); err == nil {
			out = buf.Bytes()
		}
	}
	_, err := fmt.Fprintf(w, "%s\n", out)
	return true, err
}

func newSnapshotCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the latest scene snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := url.URL{Scheme: "http", Host: g.httpAddr, Path: "/snapshot"}
			return fetchSnapshot(cmd, u.String())
		},
	}
}

func fetchSnapshot(cmd *cobra.Command, snapshotURL string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, snapshotURL, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("snapshot: %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return err
}
