package player

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"mpv", "mpv"},
		{"vlc", "vlc"},
		{"iina", "iina"},
		{"celluloid", "celluloid"},
		{"unknown", "mpv"},
		{"", "mpv"},
	}
	for _, tt := range tests {
		if got := New(tt.name).Name(); got != tt.want {
			t.Errorf("New(%q).Name() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestArgsReadStdin(t *testing.T) {
	title := `Evil"; rm -rf / #`
	for _, name := range Names {
		args := New(name).Args(title)
		if args[len(args)-1] != "-" {
			t.Errorf("%s args %v should end with - to read stdin", name, args)
		}
		found := false
		for _, a := range args {
			if a == title || a == "--force-media-title="+title {
				found = true
			}
		}
		if !found {
			t.Errorf("%s args %v should carry the title as a single argument", name, args)
		}
	}
}

// catPlayer writes its stdin to a file, standing in for a real player.
type catPlayer struct{ out string }

func (c catPlayer) Name() string { return "sh" }

func (c catPlayer) Args(string) []string {
	return []string{"-c", `cat > "$0"`, c.out}
}

func TestSessionPipesStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	out := filepath.Join(t.TempDir(), "played")

	s, err := Start(context.Background(), catPlayer{out: out}, "title")
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Commit("video/mp4", "a.mp4"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write([]byte("frame data")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "frame data" {
		t.Errorf("player received %q", data)
	}

	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

type exitPlayer struct{}

func (exitPlayer) Name() string { return "sh" }
func (exitPlayer) Args(string) []string { return []string{"-c", "exit 4"} }

func TestSessionUserQuitIsNotAnError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	s, err := Start(context.Background(), exitPlayer{}, "title")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil for nonzero player exit", err)
	}
}
