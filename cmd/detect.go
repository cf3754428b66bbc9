/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/allbin/labserial/internal/tui/styles"
	"github.com/allbin/labserial/link"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errNotDetected = errors.New("instrument not detected")

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect <port>",
	Short: "Probe a port for an instrument",
	Long: `Open a port and probe it for an instrument.

The probe is sent up to --attempts times. Each attempt waits for the next
frame and succeeds when it contains the expected text. The command exits
with status 1 when the instrument does not answer.

Example usage:
  labserial detect /dev/ttyUSB0
  labserial detect /dev/ttyUSB0 --probe "#LAB?" --expect AngstremLabController
  labserial detect /dev/ttyUSB0 --baud 9600 --attempts 5`,
	Args:    cobra.ExactArgs(1),
	PreRunE: bindDetectFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		v := viper.GetViper()
		l, line, err := newLink(v, args[0])
		if err != nil {
			return err
		}
		defer l.Close()

		probe, expect, attempts := probeFrames(v)
		fmt.Fprintf(cmd.OutOrStdout(), "%s Probing %s at %s...\n", styles.InfoStyle.Render("⚡"), args[0], line)
		return runDetect(ctx, cmd.OutOrStdout(), l, probe, expect, attempts)
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectFlags(detectCmd)
	detectCmd.Flags().DurationP("timeout", "T", 10*time.Second, "Overall timeout")
}

// runDetect opens l and runs the detect exchange, reporting the outcome on w.
func runDetect(ctx context.Context, w io.Writer, l *link.Link, probe, expect link.Frame, attempts int) error {
	if !l.Open() {
		fmt.Fprintf(w, "%s Could not open %s\n", styles.ErrorStyle.Render("✗"), l.Name())
		return fmt.Errorf("open %s: %w", l.Name(), link.ErrNotOpen)
	}

	start := time.Now()
	if !l.Detect(ctx, probe, expect, attempts) {
		fmt.Fprintf(w, "%s No instrument answered %s (%s)\n",
			styles.ErrorStyle.Render("✗"), preview(probe), l.Status())
		return errNotDetected
	}

	fmt.Fprintf(w, "%s Instrument detected in %s\n",
		styles.SuccessStyle.Render("✓"), time.Since(start).Round(time.Millisecond))
	return nil
}
