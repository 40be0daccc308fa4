package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikoskalogridis/scenestate/internal/ipc"
	"github.com/nikoskalogridis/scenestate/internal/msg"
)

func newPublishCmd(g *globalFlags) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "publish TOPIC [JSON|-]",
		Short: "Publish one message",
		Long: `Publish one message to scened. The payload is validated locally before
it is sent. Without JSON the topic's default payload is published; "-"
reads the payload from stdin.

With --raw the single argument is a complete {"topic":...,"data":...}
envelope and is forwarded as-is.`,
		Example: `  scenectl publish carState '{"vEgo": 12.5}'
  scenectl publish --raw '{"topic":"deviceState","data":{"started":true}}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				if len(args) != 1 {
					return fmt.Errorf("--raw takes exactly one envelope argument")
				}
				return ipc.SendRaw(g.socket, []byte(args[0]))
			}

			var data []byte
			if len(args) == 2 {
				if args[1] == "-" {
					b, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("read stdin: %w", err)
					}
					data = b
				} else {
					data = []byte(args[1])
				}
			}
			m, err := msg.Decode(msg.Topic(args[0]), data)
			if err != nil {
				return err
			}
			return ipc.Send(g.socket, m)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Forward a pre-built envelope without local validation")
	return cmd
}

func newReplayCmd(g *globalFlags) *cobra.Command {
	var rate float64

	cmd := &cobra.Command{
		Use:   "replay [FILE|-]",
		Short: "Publish a file of envelopes, one per line",
		Long: `Replay reads JSON envelopes, one per line, and publishes them in order.
Blank lines and lines starting with # are skipped. With --rate the lines
are paced at that many per second; otherwise they are sent in one batch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			ms, err := readEnvelopes(in)
			if err != nil {
				return err
			}
			if rate <= 0 {
				if err := ipc.Send(g.socket, ms...); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed %d messages\n", len(ms))
				return nil
			}

			period := time.Duration(float64(time.Second) / rate)
			ticker := time.NewTicker(period)
			defer ticker.Stop()
			for i, m := range ms {
				if i > 0 {
					select {
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					case <-ticker.C:
					}
				}
				if err := ipc.Send(g.socket, m); err != nil {
					return fmt.Errorf("message %d: %w", i+1, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d messages\n", len(ms))
			return nil
		},
	}
	cmd.Flags().Float64Var(&rate, "rate", 0, "Messages per second (0 sends all at once)")
	return cmd
}

// readEnvelopes decodes every non-comment line of r. It fails on the first
// invalid line so nothing is half-sent.
func readEnvelopes(r io.Reader) ([]msg.Message, error) {
	var out []msg.Message

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		m, err := msg.Unmarshal([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
