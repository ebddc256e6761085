package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediarelay/internal/server"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP relay",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

func init() {
	serveCmd.Flags().StringVarP(&flagListen, "listen", "L", "", "Listen address, e.g. :5000")
}

func serveRun(cmd *cobra.Command, args []string) error {
	relay, bin := newRelay()

	var journal server.Journal
	if store := openJournal(); store != nil {
		defer store.Close()
		journal = store
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("listen", cfg.Listen).
		Str("extractor", bin).
		Str("environment", cfg.Environment).
		Int("max_concurrent_streams", cfg.MaxConcurrentStreams).
		Msg("starting relay")

	return server.New(cfg, relay, journal, log).Run(ctx)
}
