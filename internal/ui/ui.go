// Package ui wraps fzf for the few interactive prompts the CLI needs.
// Choices reach fzf on stdin as inert text; fzf is never given a preview
// command or a shell string.
package ui

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrCancelled is returned when the user dismisses a prompt.
var ErrCancelled = errors.New("selection cancelled")

// fzf exit status for Esc or Ctrl-C.
const fzfInterrupted = 130

// fzf runs the picker with args, feeding it stdin, and returns its stdout.
// A nonzero exit is returned as an error unless tolerateNoMatch is set,
// in which case only an interrupt is an error.
func fzf(args []string, stdin string, tolerateNoMatch bool) (string, error) {
	bin, err := exec.LookPath("fzf")
	if err != nil {
		return "", fmt.Errorf("fzf not found in PATH: %w", err)
	}

	var out bytes.Buffer
	cmd := exec.Command(bin, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && exitErr.ExitCode() == fzfInterrupted:
		return "", ErrCancelled
	case tolerateNoMatch && exitErr != nil:
	default:
		return "", fmt.Errorf("running fzf: %w", err)
	}
	return out.String(), nil
}

// Select shows items in fzf and returns the index of the one picked.
func Select(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, errors.New("no items to select from")
	}

	// Each line is "<index>\t<label>"; only the label is shown, so duplicate
	// or odd labels cannot confuse the lookup.
	var lines strings.Builder
	for i, item := range items {
		lines.WriteString(strconv.Itoa(i))
		lines.WriteByte('\t')
		lines.WriteString(strings.ReplaceAll(item, "\n", " "))
		lines.WriteByte('\n')
	}

	out, err := fzf([]string{
		"--prompt", prompt + " > ",
		"--height", "40%",
		"--reverse",
		"--delimiter", "\t",
		"--with-nth", "2..",
		"--no-multi",
		"--cycle",
	}, lines.String(), false)
	if err != nil {
		return -1, err
	}
	return parseSelection(out, len(items))
}

func parseSelection(out string, n int) (int, error) {
	line := strings.TrimSpace(out)
	if line == "" {
		return -1, errors.New("no selection made")
	}
	field, _, _ := strings.Cut(line, "\t")
	idx, err := strconv.Atoi(field)
	if err != nil {
		return -1, fmt.Errorf("parsing selection index: %w", err)
	}
	if idx < 0 || idx >= n {
		return -1, fmt.Errorf("selection index %d out of range", idx)
	}
	return idx, nil
}

// Confirm is a Yes/No Select.
func Confirm(prompt string) (bool, error) {
	idx, err := Select(prompt, []string{"Yes", "No"})
	return idx == 0, err
}

// Input reads one line of free text using fzf's query box.
func Input(prompt string) (string, error) {
	// With --print-query and no candidates fzf exits 1 on Enter.
	out, err := fzf([]string{
		"--prompt", prompt + " > ",
		"--height", "10%",
		"--reverse",
		"--print-query",
		"--no-info",
	}, "", true)
	if err != nil {
		return "", err
	}
	query, _, _ := strings.Cut(out, "\n")
	if query = strings.TrimSpace(query); query == "" {
		return "", errors.New("no input provided")
	}
	return query, nil
}
