// Command kbdc drives the keyboard-layout DLL toolchain: it compiles
// layout descriptions into driver DLLs for the three Windows targets and
// decompiles existing DLLs back into layout descriptions.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"github.com/joshuapare/kbdimage/windll"
)

var (
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "kbdc",
	Short: "Compile and decompile Windows keyboard-layout DLLs",
	Long: `kbdc turns language-neutral keyboard layout descriptions into loadable
Windows keyboard-layout driver DLLs (x86, WoW64 and amd64), and turns such
DLLs back into layout descriptions.`,
	Version:       windll.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress everything but errors")
}

// initLogging installs the process logger. The default level comes from
// KBDC_LOG and is overridden by the --verbose and --quiet flags.
func initLogging() {
	level := slog.LevelInfo
	switch env.Str("KBDC_LOG", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	var w io.Writer = os.Stderr
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
