package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mediarelay/internal/extract"
	"mediarelay/internal/media"
)

var flagProbeJSON bool

var probeCmd = &cobra.Command{
	Use:   "probe URL",
	Short: "Show title, duration and formats of a media URL",
	Args:  cobra.ExactArgs(1),
	RunE:  probeRun,
}

func init() {
	probeCmd.Flags().BoolVarP(&flagProbeJSON, "json", "j", false, "Print the descriptor as JSON")
}

func probeRun(cmd *cobra.Command, args []string) error {
	relay, _ := newRelay()
	store := openJournal()
	if store != nil {
		defer store.Close()
	}

	start := time.Now()
	desc, err := relay.Probe(cmd.Context(), args[0])
	entry := media.Activity{Action: "probe", URL: args[0], Duration: time.Since(start), Status: media.StatusOK}
	if err != nil {
		entry.Status = extract.StatusOf(err, false)
		recordActivity(store, entry)
		debugf("probe failed: %v", err)
		return errors.New(extract.PublicMessage(err))
	}
	entry.Title = desc.Title
	recordActivity(store, entry)

	out := cmd.OutOrStdout()
	if flagProbeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	}
	printDescriptor(out, desc)
	return nil
}

func printDescriptor(out io.Writer, desc *media.Descriptor) {
	fmt.Fprintln(out, titleStyle.Render(desc.Title))
	if desc.DurationSeconds != nil {
		d := time.Duration(*desc.DurationSeconds * float64(time.Second)).Round(time.Second)
		fmt.Fprintln(out, mutedStyle.Render("Duration: "+d.String()))
	}
	if desc.ThumbnailURL != nil {
		fmt.Fprintln(out, mutedStyle.Render("Thumbnail: "+*desc.ThumbnailURL))
	}

	t := newTable("ID", "EXT", "RESOLUTION", "SIZE", "STREAMS")
	for _, f := range desc.Formats {
		streams := "audio+video"
		switch {
		case f.VideoOnly:
			streams = "video only"
		case f.AudioOnly:
			streams = "audio only"
		}
		t.Row(f.FormatID, f.Extension, f.ResolutionLabel, f.ApproxSizeLabel, streams)
	}
	fmt.Fprintln(out, t.Render())
}
