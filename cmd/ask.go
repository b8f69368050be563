package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/asterhq/aster/internal/app"
	"github.com/asterhq/aster/internal/chat"
	"github.com/asterhq/aster/internal/config"
	"github.com/asterhq/aster/internal/orchestrator"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Ctrl-C aborts the run mid-stream.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = a.Close(closeCtx)
	}()

	turn := &chat.Turn{Content: strings.Join(args, " ")}

	var runErr error
	state := a.Orchestrator.Run(ctx, turn, func(ev orchestrator.Event) error {
		switch ev.Type {
		case orchestrator.EventToken:
			fmt.Print(ev.Token)
		case orchestrator.EventStatus:
			fmt.Fprintf(os.Stderr, "\n[%s]\n", ev.Status)
		case orchestrator.EventSources:
			fmt.Fprintln(os.Stderr, "\nSources:")
			for _, s := range ev.Sources {
				if s.URL != "" {
					fmt.Fprintf(os.Stderr, "  - %s (%s)\n", s.Title, s.URL)
				} else {
					fmt.Fprintf(os.Stderr, "  - %s\n", s.Title)
				}
			}
		case orchestrator.EventDone:
			fmt.Println()
		case orchestrator.EventError:
			runErr = fmt.Errorf("%s", ev.Message)
		}
		return nil
	})

	if state == orchestrator.StateAborted {
		fmt.Fprintln(os.Stderr, "\naborted")
		return nil
	}
	return runErr
}
