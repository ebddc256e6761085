// Package player launches local media players that read relayed media from
// stdin. All player invocations use exec.Command with explicit argument
// slices; titles from remote pages never pass through a shell.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Player is a media player that can play a stream piped to its stdin.
type Player interface {
	// Name returns the player binary name.
	Name() string

	// Args returns the arguments that make the player read stdin.
	Args(title string) []string
}

// Names lists the supported players.
var Names = []string{"mpv", "vlc", "iina", "celluloid"}

// New creates a player by name.
func New(name string) Player {
	switch name {
	case "vlc":
		return VLC{}
	case "iina", "celluloid":
		return Generic{name: name}
	default:
		return MPV{}
	}
}

// Available checks if the player binary exists in PATH.
func Available(p Player) bool {
	_, err := exec.LookPath(p.Name())
	return err == nil
}

// MPV plays stdin with mpv.
type MPV struct{}

func (MPV) Name() string { return "mpv" }

func (MPV) Args(title string) []string {
	return []string{
		"--force-media-title=" + title,
		"--really-quiet",
		"--cache=yes",
		"-",
	}
}

// VLC plays stdin with VLC.
type VLC struct{}

func (VLC) Name() string { return "vlc" }

func (VLC) Args(title string) []string {
	return []string{
		"--meta-title", title,
		"--play-and-exit",
		"-",
	}
}

// Generic covers players such as iina and celluloid that accept mpv-style flags.
type Generic struct {
	name string
}

func (g Generic) Name() string { return g.name }

func (g Generic) Args(title string) []string {
	return []string{"--force-media-title=" + title, "-"}
}

// Session is a running player fed through its stdin. It satisfies the
// relay's sink contract, so relayed bytes flow straight into the player.
type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	closeOnce sync.Once
	waitErr   error
}

// Start launches p for title.
func Start(ctx context.Context, p Player, title string) (*Session, error) {
	cmd := exec.CommandContext(ctx, p.Name(), p.Args(title)...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating %s stdin: %w", p.Name(), err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", p.Name(), err)
	}
	return &Session{cmd: cmd, stdin: stdin}, nil
}

// Commit is a no-op: players detect the container from the stream itself.
func (s *Session) Commit(contentType, filename string) error { return nil }

// Write feeds the player. It fails once the player has exited.
func (s *Session) Write(p []byte) (int, error) {
	return s.stdin.Write(p)
}

// Close ends the input and waits for the player to exit. A nonzero exit
// status is how most players report the user quitting, so it is not an error.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.stdin.Close()
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			s.waitErr = fmt.Errorf("waiting for player: %w", err)
		}
	})
	return s.waitErr
}
