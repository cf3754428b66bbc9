/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/allbin/labserial/internal/tui/components"
	"github.com/allbin/labserial/internal/tui/styles"
	"github.com/allbin/labserial/link"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	errNotSent     = errors.New("frame not sent")
	errNotVerified = errors.New("instrument reply did not match")
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send a frame to an instrument",
	Long: `Send one frame to an instrument over a half-duplex link.

Data can be provided as:
- Command line argument: labserial send "#LAB?" /dev/ttyUSB0
- From stdin (pipe): echo "#LAB?" | labserial send /dev/ttyUSB0
- Interactive mode: labserial send /dev/ttyUSB0 (prompts for input)

The frame waits for a free line, is written once and the line is held for
the write cooldown. With --expect or --expect-hex the next inbound frame is
checked against the expectation and the command fails on a mismatch.

Example usage:
  labserial send "#LAB?" /dev/ttyUSB0 --newline
  labserial send "#LAB?" /dev/ttyUSB0 --newline --expect AngstremLabController
  labserial send "01 03 00 00" /dev/ttyUSB0 --hex --expect-hex "01 03 02"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, portPath, err := sendInput(cmd, args)
		if err != nil {
			return err
		}

		hexMode, _ := cmd.Flags().GetBool("hex")
		newline, _ := cmd.Flags().GetBool("newline")
		expect, _ := cmd.Flags().GetString("expect")
		expectHex, _ := cmd.Flags().GetString("expect-hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		v := viper.GetViper()
		frame, err := buildFrame(data, hexMode, newline, unescape(v.GetString("delimiter")))
		if err != nil {
			return err
		}
		want, verify, err := expectFrame(expect, expectHex)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		l, _, err := newLink(v, portPath)
		if err != nil {
			return err
		}
		defer l.Close()

		return sendFrame(ctx, cmd.OutOrStdout(), l, frame, want, verify)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Append the line delimiter to the data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '23 4C 41 42 3F')")
	sendCmd.Flags().String("expect", "", "Require the reply to contain this text")
	sendCmd.Flags().String("expect-hex", "", "Require the reply to equal these bytes")
	sendCmd.Flags().DurationP("timeout", "T", 5*time.Second, "Overall timeout")
}

// sendInput resolves the data and port from args, stdin or a prompt.
func sendInput(cmd *cobra.Command, args []string) (data, portPath string, err error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	portPath = args[0]

	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return promptForData(cmd.OutOrStdout(), cmd.InOrStdin()), portPath, nil
	}
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(raw), "\r\n"), portPath, nil
}

func promptForData(w io.Writer, r io.Reader) string {
	fmt.Fprint(w, styles.InfoStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

// buildFrame turns command line data into the frame to send.
func buildFrame(data string, hexMode, newline bool, delim string) (link.Frame, error) {
	if hexMode {
		b, err := components.ParseHex(data)
		if err != nil {
			return link.Frame{}, fmt.Errorf("invalid hex data: %w", err)
		}
		return link.Binary(b), nil
	}
	if data == "" {
		return link.Frame{}, errors.New("nothing to send")
	}
	if newline {
		data += delim
	}
	return link.Text(data), nil
}

// expectFrame returns the expected reply, if one was requested.
func expectFrame(text, hexText string) (link.Frame, bool, error) {
	switch {
	case text != "" && hexText != "":
		return link.Frame{}, false, errors.New("--expect and --expect-hex are mutually exclusive")
	case hexText != "":
		b, err := components.ParseHex(hexText)
		if err != nil {
			return link.Frame{}, false, fmt.Errorf("invalid expected hex: %w", err)
		}
		return link.Binary(b), true, nil
	case text != "":
		return link.Text(text), true, nil
	default:
		return link.Frame{}, false, nil
	}
}

// sendFrame opens l and sends f once, verifying the reply when verify is
// set.
func sendFrame(ctx context.Context, w io.Writer, l *link.Link, f, want link.Frame, verify bool) error {
	fmt.Fprintf(w, "%s Opening %s...\n", styles.InfoStyle.Render("⚡"), l.Name())
	if !l.Open() {
		fmt.Fprintf(w, "%s Could not open %s\n", styles.ErrorStyle.Render("✗"), l.Name())
		return fmt.Errorf("open %s: %w", l.Name(), link.ErrNotOpen)
	}

	fmt.Fprintf(w, "%s Sending %s: %s\n", styles.InfoStyle.Render("📤"), humanize.Bytes(uint64(f.Len())), preview(f))

	if !verify {
		if !l.TryWrite(ctx, f) {
			fmt.Fprintf(w, "%s Send failed (%s)\n", styles.ErrorStyle.Render("✗"), l.Status())
			return errNotSent
		}
		fmt.Fprintf(w, "%s Sent %s\n", styles.SuccessStyle.Render("✓"), humanize.Bytes(uint64(f.Len())))
		return nil
	}

	if !l.SendAndVerify(ctx, f, want) {
		fmt.Fprintf(w, "%s No matching reply for %s\n", styles.ErrorStyle.Render("✗"), preview(want))
		return errNotVerified
	}
	fmt.Fprintf(w, "%s Reply matched %s\n", styles.SuccessStyle.Render("✓"), preview(want))
	return nil
}

// preview renders a frame for one line of output.
func preview(f link.Frame) string {
	const limit = 50
	if f.Kind() == link.KindBinary {
		b := f.Bytes()
		if len(b) > limit/3 {
			return fmt.Sprintf("% X ...", b[:limit/3])
		}
		return fmt.Sprintf("% X", b)
	}

	s := strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, f.Text())
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
