package cmd

import (
	"context"
	"os"
	"time"

	"golang.org/x/term"

	"mediarelay/internal/enrich"
	"mediarelay/internal/extract"
	"mediarelay/internal/history"
	"mediarelay/internal/httputil"
	"mediarelay/internal/media"
)

// enrichTimeout bounds a single page metadata lookup.
const enrichTimeout = 10 * time.Second

// newRelay resolves the extractor and builds the relay from cfg. A missing
// extractor is not fatal: the bare name is used, so installing it on PATH
// later takes effect without a restart, and spawn failures are reported per
// request.
func newRelay() (*extract.Relay, string) {
	bin, err := extract.LocateBinary(cfg.ExtractorPath, cfg.ExtractorName)
	if err != nil {
		log.Warn().Err(err).Msg("extractor not found; requests will fail until it is installed")
		bin = cfg.ExtractorName
		if cfg.ExtractorPath != "" {
			bin = cfg.ExtractorPath
		}
	}
	debugf("using extractor %s", bin)

	runner := extract.NewExecRunner(bin, cfg.KillGrace.Duration)
	relay := extract.New(runner, extract.NewClassifier(cfg.ProtectedPhrases...), extract.Options{
		ProbeTimeout:     cfg.ProbeTimeout.Duration,
		StreamTimeout:    cfg.StreamTimeout.Duration,
		SocketTimeout:    cfg.SocketTimeout,
		MaxMetadataBytes: cfg.MaxMetadataBytes,
	}, log)

	if cfg.EnrichMetadata {
		relay.SetEnricher(enrich.New(httputil.NewClient(enrichTimeout), log))
	}
	return relay, bin
}

// openJournal opens the activity journal, or returns nil when history is
// disabled or unavailable.
func openJournal() *history.Store {
	if !cfg.History {
		return nil
	}
	store, err := history.OpenDefault()
	if err != nil {
		log.Warn().Err(err).Msg("activity history unavailable")
		return nil
	}
	return store
}

// recordActivity appends a to the journal when one is open.
func recordActivity(store *history.Store, a media.Activity) {
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := store.Record(ctx, a); err != nil {
		log.Warn().Err(err).Msg("could not record activity")
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
