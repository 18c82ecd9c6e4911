package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/wmkit/wmkit/internal/dbus"
)

var dismissOpts struct {
	all   bool
	quiet bool
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss [id...]",
	Short: "Dismiss notifications",
	Long: `Dismiss one or more notifications by ID, or every active
notification with --all.

Examples:
  # Dismiss a specific notification
  wmkit dismiss 42

  # Clear the screen
  wmkit dismiss --all`,
	RunE: runDismiss,
}

var resetTimeoutCmd = &cobra.Command{
	Use:   "reset-timeout <id> [duration]",
	Short: "Restart a notification's timeout",
	Long: `Restart the timeout of an active notification. Without a duration
the current timeout starts over; with one, the notification stays up for
the given duration from now.

Examples:
  # Give a popup its full timeout again
  wmkit reset-timeout 42

  # Keep it up for another minute
  wmkit reset-timeout 42 1m`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runResetTimeout,
}

var replaceCmd = &cobra.Command{
	Use:   "replace <id> <summary> [body]",
	Short: "Replace a notification's text in place",
	Long: `Replace the summary and body of an active notification without
touching its timeout, position or stacking order.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runReplace,
}

func init() {
	rootCmd.AddCommand(dismissCmd)
	rootCmd.AddCommand(resetTimeoutCmd)
	rootCmd.AddCommand(replaceCmd)

	dismissCmd.Flags().BoolVar(&dismissOpts.all, "all", false,
		"Dismiss every active notification")
	dismissCmd.Flags().BoolVarP(&dismissOpts.quiet, "quiet", "q", false,
		"Suppress output")
}

func runDismiss(cmd *cobra.Command, args []string) error {
	if dismissOpts.all {
		return withClient(func(client *dbus.Client) error {
			n, err := client.CloseAll()
			if err != nil {
				return err
			}
			if !dismissOpts.quiet {
				fmt.Printf("closed %s\n", english.Plural(int(n), "notification", ""))
			}
			return nil
		})
	}

	if len(args) == 0 {
		return fmt.Errorf("no notification IDs given (use --all to dismiss everything)")
	}

	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	return withClient(func(client *dbus.Client) error {
		closed := 0
		for _, id := range ids {
			ok, err := client.Dismiss(id)
			if err != nil {
				return fmt.Errorf("failed to dismiss %d: %w", id, err)
			}
			if ok {
				closed++
			} else if !dismissOpts.quiet {
				fmt.Printf("no active notification %d\n", id)
			}
		}
		if !dismissOpts.quiet {
			fmt.Printf("closed %s\n", english.Plural(closed, "notification", ""))
		}
		return nil
	})
}

func runResetTimeout(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var d time.Duration
	if len(args) == 2 {
		d, err = time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", args[1], err)
		}
		if d <= 0 {
			return fmt.Errorf("duration must be positive, got %s", d)
		}
	}

	return withClient(func(client *dbus.Client) error {
		ok, err := client.ResetTimeout(id, d)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no active notification %d", id)
		}
		return nil
	})
}

func runReplace(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	body := ""
	if len(args) == 3 {
		body = args[2]
	}

	return withClient(func(client *dbus.Client) error {
		ok, err := client.ReplaceText(id, args[1], body)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no active notification %d", id)
		}
		return nil
	})
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid notification ID %q", s)
	}
	return uint32(id), nil
}

func parseIDs(args []string) ([]uint32, error) {
	ids := make([]uint32, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
