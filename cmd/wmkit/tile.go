package main

import (
	"fmt"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/wmkit/wmkit/internal/tile"
	"github.com/wmkit/wmkit/internal/x11"
)

var tileOpts struct {
	screen int
	dryRun bool
}

var tileCmd = &cobra.Command{
	Use:   "tile",
	Short: "Stack the visible windows vertically",
	Long: `Arrange the visible top-level windows into a full-width vertical
stack over the screen's workarea. Windows are laid out in stacking
order, each taking an equal share of the workarea height.

This talks to the X server directly and needs no running daemon.`,
	RunE: runTile,
}

func init() {
	rootCmd.AddCommand(tileCmd)

	tileCmd.Flags().IntVar(&tileOpts.screen, "screen", -1,
		"Screen to tile (-1 = screen under the pointer)")
	tileCmd.Flags().BoolVarP(&tileOpts.dryRun, "dry-run", "n", false,
		"Print the computed geometry without moving windows")
}

func runTile(cmd *cobra.Command, args []string) error {
	conn, err := x11.Connect(logger)
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %w", err)
	}
	defer conn.Close()

	screen := tileOpts.screen
	if screen < 0 {
		screen, err = conn.ScreenForPointer()
		if err != nil {
			return fmt.Errorf("failed to find the pointer screen: %w", err)
		}
	}

	workarea, err := conn.Workarea(screen)
	if err != nil {
		return fmt.Errorf("failed to read the workarea: %w", err)
	}

	clients, err := conn.Clients()
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}
	if len(clients) == 0 {
		fmt.Println("nothing to tile")
		return nil
	}

	frames := tile.Stack{}.Arrange(tile.Params{
		Workarea: workarea,
		Clients:  clients,
	})

	if tileOpts.dryRun {
		for _, client := range clients {
			if r, ok := frames[client]; ok {
				fmt.Printf("0x%08x %dx%d+%d+%d\n", uint32(client), r.Width, r.Height, r.X, r.Y)
			}
		}
		return nil
	}

	if err := conn.Apply(frames); err != nil {
		return fmt.Errorf("failed to move windows: %w", err)
	}
	fmt.Printf("tiled %s on screen %d\n", english.Plural(len(frames), "window", ""), screen)
	return nil
}
