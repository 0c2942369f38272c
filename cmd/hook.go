package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/CosmoTheDev/feishu-notifier/internal/event"
	"github.com/CosmoTheDev/feishu-notifier/internal/notify"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle one event read from stdin",
	Long: `Reads a single JSON event ({"type": ..., "properties": {...}}) from
stdin and delivers a notification if the event needs attention.

Delivery failures are logged, never reported through the exit code, so
the host is never blocked by a notification problem.`,
	Args: cobra.NoArgs,
	RunE: runHook,
}

func runHook(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	ev, err := event.Decode(data)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	targets := notify.NewLazyTarget(resolveTarget, notify.NewSlogObserver(nil))
	res := newPipeline().Handle(ctx, ev, targets)
	slog.Debug("hook: done", "event", ev.Type, "outcome", res.Outcome.String())
	return nil
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Handle newline-delimited JSON events from stdin",
	Long: `Reads one JSON event per line from stdin and handles them in arrival
order until stdin closes. Configuration is loaded on the first event that
needs a notification; if it is invalid the error is logged once and the
remaining events are skipped.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

// maxEventSize bounds a single NDJSON line.
const maxEventSize = 4 << 20

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPipeline()
	targets := notify.NewLazyTarget(resolveTarget, notify.NewSlogObserver(nil))
	counts := make(map[notify.Outcome]int)

	sc := bufio.NewScanner(cmd.InOrStdin())
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	line := 0
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		line++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		ev, err := event.Decode(raw)
		if err != nil {
			slog.Warn("listen: skipping malformed event", "line", line, "error", err)
			continue
		}
		res := p.Handle(ctx, ev, targets)
		counts[res.Outcome]++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	slog.Info("listen: input closed",
		"delivered", counts[notify.OutcomeDelivered],
		"failed", counts[notify.OutcomeFailed],
		"skipped", counts[notify.OutcomeSkipped],
		"ignored", counts[notify.OutcomeIgnored],
	)
	return nil
}
