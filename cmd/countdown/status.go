package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/countdown/internal/config"
	"github.com/goodtune/countdown/internal/countdown"
	"github.com/goodtune/countdown/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var statusIdentity string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored countdown for an identity",
	Long:  `Read the persisted deadline for an identity from the configured store and print the time remaining.`,
	Example: `  countdown status --identity alice
  countdown -c ./config.yaml status --identity alice`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusIdentity, "identity", "", "Identity to look up (defaults to identity.id from config)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	identity := statusIdentity
	if identity == "" {
		identity = cfg.Identity.ID
	}
	if identity == "" {
		return fmt.Errorf("no identity given: use --identity or set identity.id")
	}

	store, err := openStorage(cfg.Storage, zerolog.Nop())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	record, err := store.Load(ctx, identity)
	if errors.Is(err, storage.ErrNotFound) {
		record = nil
	} else if err != nil {
		return fmt.Errorf("failed to load deadline: %w", err)
	}

	printStatus(os.Stdout, identity, record, time.Now())
	return nil
}

func printStatus(w io.Writer, identity string, record *storage.Record, now time.Time) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	_, _ = cyan.Fprintf(w, "Identity: %s\n", identity)

	if record == nil {
		_, _ = yellow.Fprintln(w, "No countdown set")
		return
	}

	deadline := record.Deadline()
	_, _ = fmt.Fprintf(w, "Deadline: %s\n", deadline.Format(time.RFC1123))
	_, _ = fmt.Fprintf(w, "Set at:   %s\n", record.SetAt().Format(time.RFC1123))

	remaining := countdown.Remaining(deadline, now)
	if remaining.IsZero() {
		_, _ = green.Fprintln(w, "Deadline reached")
		return
	}

	_, _ = green.Fprintf(w, "Remaining: %dd %02dh %02dm %02ds\n",
		remaining.Days, remaining.Hours, remaining.Minutes, remaining.Seconds)
}
