package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wmkit/wmkit/internal/dbus"
	"github.com/wmkit/wmkit/internal/xkb"
)

// layoutCmd represents the keyboard layout command group.
var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Manage the keyboard layout group",
	Long: `Manage the active XKB keyboard layout group through the daemon.

Use 'wmkit layout get' to print the active group index.
Use 'wmkit layout set <group>' to switch groups.
Use 'wmkit layout names' to print the configured layout names.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to showing the active group
		return layoutGetRun(cmd, args)
	},
}

var layoutGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the active layout group index",
	RunE:  layoutGetRun,
}

var layoutSetCmd = &cobra.Command{
	Use:   "set <group>",
	Short: "Switch to a layout group",
	Long: fmt.Sprintf(`Switch to a layout group by index (0 to %d) or by its name as
reported by 'wmkit layout names'.`, xkb.MaxGroup),
	Args: cobra.ExactArgs(1),
	RunE: layoutSetRun,
}

var layoutNamesCmd = &cobra.Command{
	Use:   "names",
	Short: "Print the configured layout names",
	RunE:  layoutNamesRun,
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	layoutCmd.AddCommand(layoutGetCmd)
	layoutCmd.AddCommand(layoutSetCmd)
	layoutCmd.AddCommand(layoutNamesCmd)
}

func layoutGetRun(cmd *cobra.Command, args []string) error {
	return withClient(func(client *dbus.Client) error {
		group, err := client.GetLayout()
		if err != nil {
			return err
		}
		fmt.Println(group)
		return nil
	})
}

func layoutSetRun(cmd *cobra.Command, args []string) error {
	return withClient(func(client *dbus.Client) error {
		group, err := resolveGroup(client, args[0])
		if err != nil {
			return err
		}
		return client.SetLayout(group)
	})
}

func layoutNamesRun(cmd *cobra.Command, args []string) error {
	return withClient(func(client *dbus.Client) error {
		names, err := client.GetGroupNames()
		if err != nil {
			return err
		}
		for _, name := range xkb.ParseSymbols(names) {
			fmt.Println(name)
		}
		return nil
	})
}

// resolveGroup turns a group index or a layout name into a group index.
func resolveGroup(client *dbus.Client, arg string) (byte, error) {
	if n, err := strconv.ParseUint(arg, 10, 8); err == nil {
		if n > xkb.MaxGroup {
			return 0, fmt.Errorf("group %d out of range (0 to %d)", n, xkb.MaxGroup)
		}
		return byte(n), nil
	}

	names, err := client.GetGroupNames()
	if err != nil {
		return 0, err
	}
	for i, name := range xkb.ParseSymbols(names) {
		if strings.EqualFold(name, arg) {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("unknown layout %q", arg)
}
