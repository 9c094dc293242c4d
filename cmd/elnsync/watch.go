package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/elnsync/internal/events"
	"github.com/alfredjeanlab/elnsync/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print sync events as they are published",
	Long: `Print sync events from the NATS bus (ELNSYNC_NATS_URL) until interrupted.

--topic takes NATS subject patterns, e.g. "eln.folder.*" or "eln.>".`,
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		if cfg.NATSURL == "" {
			return fmt.Errorf("ELNSYNC_NATS_URL is required to watch events")
		}
		sub, err := events.NewNATSSubscriber(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer sub.Close()

		ch, cancel, err := sub.Subscribe(topic)
		if err != nil {
			return err
		}
		defer cancel()
		logger.Info("watching events", "topic", topic)

		ctx := cmd.Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				printEvent(msg, time.Now())
			}
		}
	},
}

// printEvent prints one event per line, or the raw payload with --json.
func printEvent(msg events.Message, at time.Time) {
	if jsonOutput {
		var buf bytes.Buffer
		if err := json.Compact(&buf, msg.Data); err != nil {
			buf.Reset()
			raw, _ := json.Marshal(string(msg.Data))
			buf.Write(raw)
		}
		fmt.Fprintf(stdout, "{\"topic\":%q,\"event\":%s}\n", msg.Topic, buf.Bytes())
		return
	}
	fmt.Fprintf(stdout, "%s %s %s\n", ui.RenderMuted(at.Format("15:04:05")), ui.RenderAccent(msg.Topic), msg.Data)
}

func init() {
	watchCmd.Flags().String("topic", events.TopicAll, "subject pattern to watch")
}
