package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/codebuildervaibhav/video2podcast/internal/storage"
)

// readInput returns the contents of path, or text when no path is given.
func readInput(path, text, what string) (string, error) {
	if path != "" {
		s, err := storage.ReadText(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", what, err)
		}
		return s, nil
	}
	if text != "" {
		return text, nil
	}
	return "", errors.New("please provide either a " + what + " file or direct " + what + " text")
}

// writeOutput saves text to path, or prints it to stdout when path is empty.
// Empty text is reported on stderr and nothing is written.
func writeOutput(stdout, stderr io.Writer, path, text, what string) error {
	if strings.TrimSpace(text) == "" {
		fmt.Fprintf(stderr, "⚠️  No %s returned.\n", what)
		return nil
	}
	if path == "" {
		fmt.Fprintln(stdout, text)
		return nil
	}
	if err := storage.WriteText(path, text); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}
	fmt.Fprintf(stderr, "✔ Saved %s to %s\n", what, path)
	return nil
}
