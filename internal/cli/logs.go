package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"behaviorgate/internal/database"
	"behaviorgate/internal/models"
)

var (
	logsPage   int
	logsLimit  int
	logsBots   bool
	logsHumans bool
	logsIP     string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List verification audit records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := logsFilter()
		if err != nil {
			return err
		}
		if logsPage < 1 || logsLimit < 1 {
			return errors.New("--page and --limit must be at least 1")
		}

		db, err := database.NewDB(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		entries, total, err := db.ListVerificationLogs(ctx, filter, logsPage, logsLimit)
		if err != nil {
			return err
		}

		return printLogs(cmd.OutOrStdout(), entries, total)
	},
}

func init() {
	logsCmd.Flags().IntVar(&logsPage, "page", 1, "Page number")
	logsCmd.Flags().IntVar(&logsLimit, "limit", 10, "Records per page")
	logsCmd.Flags().BoolVar(&logsBots, "bots", false, "Only records judged as bots")
	logsCmd.Flags().BoolVar(&logsHumans, "humans", false, "Only records judged as human")
	logsCmd.Flags().StringVar(&logsIP, "ip", "", "Only records from this IP address")
}

func logsFilter() (database.LogFilter, error) {
	filter := database.LogFilter{IPAddress: logsIP}

	switch {
	case logsBots && logsHumans:
		return filter, errors.New("--bots and --humans are mutually exclusive")
	case logsBots:
		isBot := true
		filter.IsBot = &isBot
	case logsHumans:
		isBot := false
		filter.IsBot = &isBot
	}
	return filter, nil
}

func printLogs(out io.Writer, entries []models.VerificationLog, total int) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tIP\tVERDICT\tNOTES")
	for _, entry := range entries {
		verdict := "human"
		if entry.IsBot {
			verdict = "bot"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			entry.Timestamp.Format(time.RFC3339), entry.IPAddress, verdict, entry.Notes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "%d of %d records\n", len(entries), total)
	return err
}
