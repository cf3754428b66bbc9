/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/allbin/labserial/internal/tui/styles"
	"github.com/allbin/labserial/link"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Print frames received from an instrument",
	Long: `Open a port and print every frame the instrument sends until interrupted.

Frames are cut by the configured framing: one line per delimiter in line
mode, one block per burst in block mode.

Example usage:
  labserial listen /dev/ttyUSB0
  labserial listen /dev/ttyUSB0 --framing block --hex
  labserial listen /dev/ttyUSB0 --raw > capture.log`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts streamOptions
		opts.hex, _ = cmd.Flags().GetBool("hex")
		opts.noTimestamps, _ = cmd.Flags().GetBool("no-timestamps")
		opts.raw, _ = cmd.Flags().GetBool("raw")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		l, line, err := newLink(viper.GetViper(), args[0])
		if err != nil {
			return err
		}
		defer l.Close()

		if !opts.raw {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Listening on %s at %s, Ctrl+C to stop\n",
				styles.InfoStyle.Render("⚡"), args[0], line)
		}
		_, err = capture(ctx, l, cmd.OutOrStdout(), opts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().BoolP("hex", "x", false, "Print frames as hex")
	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("raw", false, "Raw output mode: frame payloads only")
}

type streamOptions struct {
	hex          bool
	noTimestamps bool
	raw          bool
}

// formatFrame renders one frame as an output line.
func formatFrame(ts time.Time, f link.Frame, opts streamOptions) string {
	payload := f.Text()
	if opts.hex || f.Kind() == link.KindBinary {
		payload = fmt.Sprintf("% X", f.Bytes())
	}
	if opts.raw || opts.noTimestamps {
		return payload
	}
	return ts.Format("15:04:05.000") + " " + payload
}
