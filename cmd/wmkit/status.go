package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wmkit/wmkit/internal/dbus"
)

var statusOpts struct {
	waybar bool
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's state",
	Long: `Show the number of active notifications and whether popup display
is suspended.

With --waybar the output is Waybar's custom module JSON format:

  "custom/notifications": {
    "exec": "wmkit status --waybar",
    "interval": 5,
    "return-type": "json",
    "on-click": "wmkit toggle"
  }`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.waybar, "waybar", false,
		"Output Waybar custom module JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withClient(func(client *dbus.Client) error {
		count, err := client.ActiveCount()
		if err != nil {
			if statusOpts.waybar {
				return outputStatus(WaybarStatus{Text: "", Alt: "error", Class: "error"})
			}
			return err
		}
		suspended, err := client.IsSuspended()
		if err != nil {
			return err
		}

		if statusOpts.waybar {
			return outputStatus(waybarStatus(count, suspended))
		}

		state := "active"
		if suspended {
			state = "suspended"
		}
		fmt.Printf("%s, %d shown\n", state, count)
		return nil
	})
}

// waybarStatus builds the Waybar JSON payload from the daemon counters.
func waybarStatus(count uint32, suspended bool) WaybarStatus {
	class := "active"
	switch {
	case suspended:
		class = "suspended"
	case count == 0:
		class = "empty"
	}

	text := ""
	if count > 0 {
		text = fmt.Sprintf("%d", count)
	}

	tooltip := fmt.Sprintf("%d notifications shown", count)
	if suspended {
		tooltip = "popups suspended"
	}

	return WaybarStatus{
		Text:       text,
		Alt:        class,
		Tooltip:    tooltip,
		Class:      class,
		Percentage: min(int(count), 100),
	}
}

// outputStatus writes the status as JSON.
func outputStatus(status WaybarStatus) error {
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(status)
}
