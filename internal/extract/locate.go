package extract

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// LocateBinary resolves the extractor executable. An explicit path wins;
// otherwise a binary named name next to the running executable, then $PATH.
func LocateBinary(path, name string) (string, error) {
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolving extractor path: %w", err)
		}
		if err := checkExecutable(abs); err != nil {
			return "", err
		}
		return abs, nil
	}

	if name == "" {
		return "", fmt.Errorf("no extractor configured")
	}

	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), name)
		if runtime.GOOS == "windows" {
			candidate += ".exe"
		}
		if checkExecutable(candidate) == nil {
			return candidate, nil
		}
	}

	found, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", name, err)
	}
	return found, nil
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("extractor %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("extractor %s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0111 == 0 {
		return fmt.Errorf("extractor %s is not executable", path)
	}
	return nil
}
