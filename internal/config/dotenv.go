package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/subosito/gotenv"
)

// LoadDotenv copies KEY=VALUE pairs from path into the process environment.
// A missing file is not an error and malformed lines are skipped. Variables
// already present in the environment keep their value. It returns how many
// variables were set.
func LoadDotenv(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	set := 0
	lineNo := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// gotenv stops at the first bad line, so lines are fed one at a time.
		env, err := gotenv.StrictParse(strings.NewReader(line))
		if err != nil || len(env) == 0 {
			slog.Debug("dotenv: skipping malformed line", slog.String("file", path), slog.Int("line", lineNo))
			continue
		}
		for key, value := range env {
			if _, exists := os.LookupEnv(key); exists {
				continue
			}
			if err := os.Setenv(key, value); err != nil {
				return set, fmt.Errorf("set %s: %w", key, err)
			}
			set++
		}
	}
	if err := scanner.Err(); err != nil {
		return set, fmt.Errorf("read %s: %w", path, err)
	}
	return set, nil
}
