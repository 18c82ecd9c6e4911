package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wmkit/wmkit/internal/dbus"
)

// suspendCmd pauses popup display; incoming notifications queue up.
var suspendCmd = &cobra.Command{
	Use:   "suspend",
	Short: "Suspend popup display",
	Long: `Suspend popup display. Incoming notifications are queued invisibly
and shown, with fresh timeouts, when display resumes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *dbus.Client) error {
			return client.Suspend()
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume popup display",
	Long:  `Resume popup display and show every notification queued while suspended.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *dbus.Client) error {
			return client.Resume()
		})
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle popup display suspension",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(client *dbus.Client) error {
			suspended, err := client.Toggle()
			if err != nil {
				return err
			}
			if suspended {
				fmt.Println("suspended")
			} else {
				fmt.Println("active")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(suspendCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(toggleCmd)
}
