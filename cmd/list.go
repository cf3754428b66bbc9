/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	serial "github.com/allbin/labserial"
	"github.com/allbin/labserial/internal/tui/components"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		ports, err := serial.ListPorts()
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}
		logger.Debug().Int("ports", len(ports)).Msg("ports scanned")

		out := cmd.OutOrStdout()
		filtered, err := filterPorts(ports, filterType)
		if err != nil {
			return err
		}
		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Fprintf(out, "No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Fprintln(out, "No serial ports found")
			}
			return nil
		}

		if !tableFormat {
			for _, p := range filtered {
				fmt.Fprintln(out, p.Path)
			}
			return nil
		}

		fmt.Fprintf(out, "Found %d serial port(s):\n\n", len(filtered))
		fmt.Fprintln(out, components.PortTable(filtered))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("filter", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts resolves port details and keeps the ports matching
// filterType. Ports that vanish while listing are skipped.
func filterPorts(paths []string, filterType string) ([]serial.PortInfo, error) {
	filterType = strings.ToLower(filterType)
	switch filterType {
	case "", "all", "usb", "standard", "arm":
	default:
		return nil, fmt.Errorf("unknown filter %q (want usb, standard, arm or all)", filterType)
	}

	var out []serial.PortInfo
	for _, path := range paths {
		info, err := serial.GetPortInfo(path)
		if err != nil {
			logger.Debug().Err(err).Str("port", path).Msg("skipping port")
			continue
		}
		if matchesFilter(*info, filterType) {
			out = append(out, *info)
		}
	}
	return out, nil
}

func matchesFilter(info serial.PortInfo, filterType string) bool {
	name := strings.ToLower(info.Name)
	switch filterType {
	case "usb":
		return info.IsUSB || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
	case "standard":
		return strings.HasPrefix(name, "ttys")
	case "arm":
		return strings.HasPrefix(name, "ttyama")
	default:
		return true
	}
}
