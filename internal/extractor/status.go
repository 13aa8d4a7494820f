package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// StatusFile is the single-line status marker the orchestrator's remote probe
// reads to decide whether a worker is still running.
type StatusFile struct {
	path string
}

func NewStatusFile(dir string) *StatusFile {
	return &StatusFile{path: filepath.Join(dir, "status.txt")}
}

func (s *StatusFile) Update(state, details string) {
	line := fmt.Sprintf("%s - %s", time.Now().UTC().Format(time.RFC3339), state)
	if details != "" {
		line += " - " + details
	}
	if err := os.WriteFile(s.path, []byte(line+"\n"), 0o644); err != nil {
		log.Error().Err(err).Msg("Failed to write status file")
	}
	log.Info().Msgf("Status: %s %s", state, details)
}
