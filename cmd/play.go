package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediarelay/internal/extract"
	"mediarelay/internal/media"
	"mediarelay/internal/player"
)

var flagPlayer string

var playCmd = &cobra.Command{
	Use:   "play URL",
	Short: "Play a media URL in a local player without saving it",
	Args:  cobra.ExactArgs(1),
	RunE:  playRun,
}

func init() {
	playCmd.Flags().StringVarP(&flagKind, "kind", "k", "", "Variant: video | audio (prompted when omitted on a terminal)")
	playCmd.Flags().StringVar(&flagPlayer, "player", "", "Media player: mpv | vlc | iina | celluloid")
}

func playRun(cmd *cobra.Command, args []string) error {
	rawURL := args[0]
	if flagPlayer != "" {
		cfg.Player = flagPlayer
	}
	p := player.New(cfg.Player)
	if !player.Available(p) {
		return fmt.Errorf("%s not found in PATH", p.Name())
	}

	kind, err := chooseKind(isTerminal(os.Stdin))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay, _ := newRelay()
	store := openJournal()
	if store != nil {
		defer store.Close()
	}

	desc, err := relay.Probe(ctx, rawURL)
	if err != nil {
		recordActivity(store, media.Activity{Action: "probe", URL: rawURL, Status: extract.StatusOf(err, false)})
		debugf("probe failed: %v", err)
		return errors.New(extract.PublicMessage(err))
	}

	session, err := player.Start(ctx, p, desc.Title)
	if err != nil {
		return err
	}
	debugf("playing %q with %s", desc.Title, p.Name())

	start := time.Now()
	req := media.StreamRequest{OriginalURL: rawURL, Title: desc.Title, Kind: kind}
	res, err := relay.Stream(ctx, req, session)
	closeErr := session.Close()

	entry := media.Activity{Action: "stream", URL: rawURL, Title: desc.Title, Kind: kind.String(), Duration: time.Since(start)}
	aborted := false
	if res != nil {
		entry.Bytes = res.Bytes
		aborted = res.Aborted
	}
	entry.Status = extract.StatusOf(err, aborted)
	recordActivity(store, entry)

	switch {
	case err != nil && aborted:
		// Closing the player ends the stream; that is a normal exit.
		return nil
	case err != nil:
		debugf("stream failed: %v", err)
		return errors.New(extract.PublicMessage(err))
	}
	return closeErr
}
