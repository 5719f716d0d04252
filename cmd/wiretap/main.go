package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/wiretap/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "wiretap",
		Short: "Tap and replay a game's binary websocket protocol",
		Long: `Wiretap relays a game client's websocket to the real server,
watches the binary frames on the way through and keeps the last
known visual state of the session.

The control API and the records store let you capture a state,
save it under a name and apply it again later.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".",
		"Config file, or directory holding wiretap.json / wiretap.toml")

	rootCmd.AddCommand(
		initCmd(&configPath),
		serveCmd(&configPath),
		decodeCmd(),
		encodeCmd(),
		recordsCmd(&configPath),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
