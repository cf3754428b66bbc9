/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/labserial/link"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture instrument frames to a file",
	Long: `Capture frames received from an instrument to a file for later parsing.

Each frame is written on its own line, text frames as received and binary
frames as hex. Runs continuously until interrupted (Ctrl+C).

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  labserial capture /dev/ttyUSB0 data.log
  labserial capture /dev/ttyUSB0 output.txt --baud 9600
  labserial capture /dev/ttyUSB0 capture.log --console --timestamps`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath, outputPath := args[0], args[1]
		showConsole, _ := cmd.Flags().GetBool("console")
		timestamps, _ := cmd.Flags().GetBool("timestamps")

		file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		defer file.Close()

		l, _, err := newLink(viper.GetViper(), portPath)
		if err != nil {
			return err
		}
		defer l.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var out io.Writer = file
		if showConsole {
			out = io.MultiWriter(file, cmd.OutOrStdout())
		}

		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "Capturing frames from %s to %s\n", portPath, outputPath)
		fmt.Fprintf(stderr, "Press Ctrl+C to stop\n\n")

		stats, err := capture(ctx, l, out, streamOptions{raw: !timestamps})
		fmt.Fprintf(stderr, "\nCapture complete: %d frames, %s written in %v\n",
			stats.frames, humanize.Bytes(uint64(stats.bytes)), stats.elapsed.Round(time.Millisecond))
		return err
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().BoolP("console", "c", false, "Display frames on the console while capturing")
	captureCmd.Flags().Bool("timestamps", false, "Prefix each captured frame with its arrival time")
}

type captureStats struct {
	frames  int
	bytes   int
	elapsed time.Duration
}

// faultPoll is how often capture checks a silent link for a fault.
const faultPoll = 250 * time.Millisecond

// capture opens l and writes every frame to w until ctx is done or the
// link goes away.
func capture(ctx context.Context, l *link.Link, w io.Writer, opts streamOptions) (stats captureStats, err error) {
	start := time.Now()
	defer func() { stats.elapsed = time.Since(start) }()

	frames, cancel := l.Subscribe(256)
	defer cancel()

	if !l.Open() {
		return stats, fmt.Errorf("open %s: %w", l.Name(), link.ErrNotOpen)
	}

	ticker := time.NewTicker(faultPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return stats, nil
		case <-ticker.C:
			if l.Status().Has(link.Fault) {
				return stats, link.ErrFaulted
			}
		case f, ok := <-frames:
			if !ok {
				return stats, nil
			}
			n, err := fmt.Fprintln(w, formatFrame(time.Now(), f, opts))
			if err != nil {
				return stats, fmt.Errorf("write error: %w", err)
			}
			stats.frames++
			stats.bytes += n
		}
	}
}
