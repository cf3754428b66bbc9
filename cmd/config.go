/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	serial "github.com/allbin/labserial"
	"github.com/allbin/labserial/link"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Defaults for the detect exchange, shared by detect and console.
const (
	defaultProbe    = "#LAB?"
	defaultExpect   = "AngstremLabController"
	defaultAttempts = 3
)

// serialConfig builds the serial line options from v. The resolved config
// is returned alongside for display.
func serialConfig(v *viper.Viper) ([]serial.Option, serial.Config, error) {
	parity, err := parseParity(v.GetString("parity"))
	if err != nil {
		return nil, serial.Config{}, err
	}
	flow, err := parseFlowControl(v.GetString("flow-control"))
	if err != nil {
		return nil, serial.Config{}, err
	}

	opts := []serial.Option{
		serial.WithBaudRate(v.GetInt("baud")),
		serial.WithDataBits(v.GetInt("data-bits")),
		serial.WithStopBits(v.GetInt("stop-bits")),
		serial.WithParity(parity),
		serial.WithFlowControl(flow),
		serial.WithReadTimeout(v.GetDuration("read-timeout")),
	}
	if v.GetBool("sync-writes") {
		opts = append(opts, serial.WithSyncWrite())
	}

	cfg, err := serial.NewConfig(opts...)
	if err != nil {
		return nil, serial.Config{}, fmt.Errorf("serial settings: %w", err)
	}
	return opts, cfg, nil
}

// linkConfig builds the link options from v. A zero write cooldown is
// derived from the baud rate.
func linkConfig(v *viper.Viper, baud int, log zerolog.Logger) ([]link.Option, error) {
	framing, err := link.ParseFraming(strings.ToLower(v.GetString("framing")))
	if err != nil {
		return nil, fmt.Errorf("framing %q: %w", v.GetString("framing"), err)
	}

	cooldown := v.GetDuration("write-cooldown")
	if cooldown <= 0 {
		cooldown = link.CooldownForBaud(baud)
	}

	opts := []link.Option{
		link.WithFraming(framing),
		link.WithDelimiter(unescape(v.GetString("delimiter"))),
		link.WithWriteCooldown(cooldown),
		link.WithWriteTimeout(v.GetDuration("write-timeout")),
		link.WithWriteWait(v.GetDuration("write-wait")),
		link.WithResponseTimeout(v.GetDuration("response-timeout")),
		link.WithRetryDelay(v.GetDuration("retry-delay")),
		link.WithSettleDelay(v.GetDuration("settle-delay")),
		link.WithAutoFault(v.GetBool("auto-fault")),
		link.WithLogger(log),
	}

	cfg := link.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("link settings: %w", err)
		}
	}
	return opts, nil
}

// newLink creates an unopened link to device from the current settings.
func newLink(v *viper.Viper, device string) (*link.Link, serial.Config, error) {
	serialOpts, line, err := serialConfig(v)
	if err != nil {
		return nil, serial.Config{}, err
	}
	linkOpts, err := linkConfig(v, line.BaudRate, logger)
	if err != nil {
		return nil, serial.Config{}, err
	}
	l, err := link.NewSerial(device, serialOpts, linkOpts...)
	if err != nil {
		return nil, serial.Config{}, err
	}
	return l, line, nil
}

// detectFlags adds the probe settings to cmd.
func detectFlags(cmd *cobra.Command) {
	cmd.Flags().String("probe", defaultProbe, "Probe command sent to the instrument (delimiter appended)")
	cmd.Flags().String("expect", defaultExpect, "Text the reply must contain")
	cmd.Flags().Int("attempts", defaultAttempts, "Probe rounds before giving up")
}

// bindDetectFlags binds the probe flags of the running command. Binding
// happens at run time since detect and console share the keys.
func bindDetectFlags(cmd *cobra.Command, _ []string) error {
	for key, flag := range map[string]string{
		"detect.probe":    "probe",
		"detect.expect":   "expect",
		"detect.attempts": "attempts",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// probeFrames returns the detect request and expected reply from v.
func probeFrames(v *viper.Viper) (probe, expect link.Frame, attempts int) {
	delim := unescape(v.GetString("delimiter"))
	return link.Text(unescape(v.GetString("detect.probe")) + delim),
		link.Text(unescape(v.GetString("detect.expect"))),
		v.GetInt("detect.attempts")
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return serial.ParityNone, nil
	case "odd", "o":
		return serial.ParityOdd, nil
	case "even", "e":
		return serial.ParityEven, nil
	default:
		return serial.ParityNone, fmt.Errorf("parity %q: %w", s, serial.ErrInvalidConfig)
	}
}

func parseFlowControl(s string) (serial.FlowControl, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return serial.FlowControlNone, nil
	case "rtscts":
		return serial.FlowControlRTSCTS, nil
	default:
		return serial.FlowControlNone, fmt.Errorf("flow control %q: %w", s, serial.ErrInvalidConfig)
	}
}

// unescape expands Go escapes such as \r\n typed on the command line.
// Strings that are not valid escapes are returned unchanged.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	out, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return s
	}
	return out
}
