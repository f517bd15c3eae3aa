package tally

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExportFilename is the local name for the accounting export.
const ExportFilename = "contabilidade.csv"

// Saver receives the accounting export bytes and offers them for saving.
// The Board hands it the report produced by Export; implementations decide
// where the file lands.
type Saver interface {
	Save(name string, data []byte) error
}

// DirSaver saves exports into a directory. The file is written to an
// ephemeral temp name first and renamed into place, so a partially written
// export is never observable under the final name.
type DirSaver struct {
	// Dir is the target directory. Empty means the current directory.
	Dir string
}

// Save writes data to Dir/name.
func (s DirSaver) Save(name string, data []byte) error {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, name+".*")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write export: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save export: %w", err)
	}
	return nil
}

// Ensure DirSaver implements Saver.
var _ Saver = DirSaver{}
