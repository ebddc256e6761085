package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediarelay/internal/download"
	"mediarelay/internal/extract"
	"mediarelay/internal/media"
	"mediarelay/internal/ui"
)

var (
	flagKind   string
	flagOutput string
	flagTitle  string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [URL]",
	Short: "Download a media URL as mp4 video or mp3 audio",
	Long: `Fetch streams the selected variant through the extractor into a file
under the download directory, or to stdout with -o -.
Without --title the URL is probed first to name the file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: fetchRun,
}

func init() {
	fetchCmd.Flags().StringVarP(&flagKind, "kind", "k", "", "Variant: video | audio (prompted when omitted on a terminal)")
	fetchCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output directory, or - for stdout (default: download_dir)")
	fetchCmd.Flags().StringVarP(&flagTitle, "title", "t", "", "Title used for the file name")
}

var kindChoices = []struct {
	label string
	kind  media.Kind
}{
	{"Video (mp4, up to 720p)", media.Video},
	{"Audio (mp3)", media.Audio},
}

func fetchRun(cmd *cobra.Command, args []string) error {
	interactive := isTerminal(os.Stdin)

	var rawURL string
	if len(args) == 1 {
		rawURL = args[0]
	} else if interactive {
		var err error
		if rawURL, err = ui.Input("URL"); err != nil {
			return err
		}
	} else {
		return errors.New("a URL is required")
	}

	toStdout := flagOutput == "-"
	if toStdout && isTerminal(os.Stdout) {
		return errors.New("refusing to write media to a terminal; redirect stdout or use -o DIR")
	}

	kind, err := chooseKind(interactive)
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

	title := flagTitle
	if title == "" {
		desc, err := relay.Probe(ctx, rawURL)
		if err != nil {
			recordActivity(store, media.Activity{Action: "probe", URL: rawURL, Status: extract.StatusOf(err, false)})
			debugf("probe failed: %v", err)
			return errors.New(extract.PublicMessage(err))
		}
		title = desc.Title
		debugf("probed %q with %d formats", title, len(desc.Formats))
	}

	req := media.StreamRequest{OriginalURL: rawURL, Title: title, Kind: kind}
	entry := media.Activity{Action: "stream", URL: rawURL, Title: title, Kind: kind.String()}

	var (
		path string
		res  *extract.StreamResult
	)
	start := time.Now()
	if toStdout {
		res, err = download.WriteTo(ctx, relay, req, os.Stdout)
	} else {
		dir := flagOutput
		if dir == "" {
			if dir, err = cfg.ExpandDownloadDir(); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "Downloading %s...\n", titleStyle.Render(title))
		path, res, err = download.Save(ctx, relay, req, dir)
	}

	entry.Duration = time.Since(start)
	if res != nil {
		entry.Bytes = res.Bytes
	}
	if err != nil {
		entry.Status = extract.StatusOf(err, ctx.Err() != nil)
		recordActivity(store, entry)
		debugf("fetch failed: %v", err)
		if extract.KindOf(err) == 0 {
			return err
		}
		return errors.New(extract.PublicMessage(err))
	}

	entry.Status = media.StatusOK
	recordActivity(store, entry)
	if path != "" {
		fmt.Fprintf(os.Stderr, "Saved to %s\n", path)
	}
	return nil
}

// chooseKind resolves --kind, prompting on a terminal when it is omitted.
func chooseKind(interactive bool) (media.Kind, error) {
	if flagKind != "" || !interactive {
		return media.ParseKind(flagKind)
	}

	labels := make([]string, len(kindChoices))
	for i, c := range kindChoices {
		labels[i] = c.label
	}
	idx, err := ui.Select("Download as", labels)
	if err != nil {
		return media.Video, err
	}
	return kindChoices[idx].kind, nil
}
