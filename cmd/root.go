/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/allbin/labserial/internal/logging"
	"github.com/allbin/labserial/link"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const appName = "labserial"

var (
	cfgFile   string
	logger    = zerolog.Nop()
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Talk to half-duplex laboratory instruments over serial lines",
	Long: `labserial drives laboratory instruments that share a single half-duplex
serial line: reads and writes never overlap, every write is followed by a
line cooldown, and inbound bytes are cut into line or block frames.

Settings come from flags, LABSERIAL_* environment variables and an optional
YAML config file ($HOME/.labserial.yaml by default).

Example usage:
  labserial list --table
  labserial detect /dev/ttyUSB0 --probe "#LAB?" --expect AngstremLabController
  labserial send "#LAB?" /dev/ttyUSB0 --newline --expect Angstrem
  labserial console /dev/ttyUSB0`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, logCloser, err = logging.Configure(appName, logging.Options{
			Level:   viper.GetString("log.level"),
			JSON:    viper.GetBool("log.json"),
			NoColor: viper.GetBool("log.no-color"),
			File:    viper.GetString("log.file"),
		})
		if err != nil {
			return err
		}
		logger.Debug().Str("config", viper.ConfigFileUsed()).Str("command", cmd.Name()).Msg("starting")

		if addr := viper.GetString("metrics-addr"); addr != "" {
			serveMetrics(addr)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.labserial.yaml)")

	// Serial line
	pf.IntP("baud", "b", 115200, "Baud rate")
	pf.Int("data-bits", 8, "Data bits (5-8)")
	pf.Int("stop-bits", 1, "Stop bits (1 or 2)")
	pf.String("parity", "none", "Parity: none, odd, even")
	pf.StringP("flow-control", "f", "none", "Flow control: none, rtscts")
	pf.Duration("read-timeout", 100*time.Millisecond, "Port read timeout (100ms granularity)")
	pf.Bool("sync-writes", false, "Enable synchronous writes (O_SYNC)")

	// Link behaviour
	pf.String("framing", "line", "Inbound framing: line or block")
	pf.String("delimiter", `\n`, `Line delimiter, escapes such as \r\n are accepted`)
	pf.Duration("write-cooldown", 0, "Line cooldown after each write (0 derives it from the baud rate)")
	pf.Duration("write-timeout", time.Second, "Bound on a single transmit")
	pf.Duration("write-wait", 5*time.Second, "How long to wait for a busy line before giving up")
	pf.Duration("response-timeout", 2*time.Second, "Per-attempt wait for an instrument reply")
	pf.Duration("retry-delay", 100*time.Millisecond, "Pause between detect attempts")
	pf.Duration("settle-delay", 50*time.Millisecond, "Pause after opening the port")
	pf.Bool("auto-fault", false, "Fault the link after repeated write timeouts")

	// Observability
	pf.String("log-level", "info", "Log level: trace, debug, info, warn, error, off")
	pf.String("log-file", "", "Also append logs to this file")
	pf.Bool("log-json", false, "Log JSON lines instead of console output")
	pf.Bool("log-no-color", false, "Disable colours in console logs")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")

	bindFlags(map[string]string{
		"baud":             "baud",
		"data-bits":        "data-bits",
		"stop-bits":        "stop-bits",
		"parity":           "parity",
		"flow-control":     "flow-control",
		"read-timeout":     "read-timeout",
		"sync-writes":      "sync-writes",
		"framing":          "framing",
		"delimiter":        "delimiter",
		"write-cooldown":   "write-cooldown",
		"write-timeout":    "write-timeout",
		"write-wait":       "write-wait",
		"response-timeout": "response-timeout",
		"retry-delay":      "retry-delay",
		"settle-delay":     "settle-delay",
		"auto-fault":       "auto-fault",
		"log.level":        "log-level",
		"log.file":         "log-file",
		"log.json":         "log-json",
		"log.no-color":     "log-no-color",
		"metrics-addr":     "metrics-addr",
	})
}

// bindFlags binds viper keys to persistent flags.
func bindFlags(keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".labserial" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName("." + appName)
	}

	viper.SetEnvPrefix(appName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

// serveMetrics exposes the link counters for the lifetime of the process.
func serveMetrics(addr string) {
	link.RegisterMetrics(nil)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
}
