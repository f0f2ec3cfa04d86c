package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Names of the supported key-value engines.
const (
	EngineBadger = "badger"
	EnginePebble = "pebble"
)

// ErrEngineMismatch is returned when a data directory holds a store of a
// different engine than requested.
var ErrEngineMismatch = errors.New("data directory holds a different storage engine")

// DetectEngine inspects the files of a data directory. It returns the empty
// string for a missing or empty directory, and for one it does not recognize.
func DetectEngine(dir string) (string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var pebbleManifest, badgerManifest, keyRegistry, current, log, vlog bool
	for _, file := range files {
		name := file.Name()
		switch {
		case strings.HasPrefix(name, "MANIFEST-"):
			pebbleManifest = true
		case name == "MANIFEST":
			badgerManifest = true
		case name == "CURRENT":
			current = true
		case name == "KEYREGISTRY":
			keyRegistry = true
		case strings.HasSuffix(name, ".log"):
			log = true
		case strings.HasSuffix(name, ".vlog"):
			vlog = true
		}
	}

	switch {
	case pebbleManifest && current && log:
		return EnginePebble, nil
	case badgerManifest && keyRegistry && vlog:
		return EngineBadger, nil
	default:
		return "", nil
	}
}

// CheckEngine fails with ErrEngineMismatch if dir already holds a store that
// was not written by engine.
func CheckEngine(dir string, engine string) error {
	found, err := DetectEngine(dir)
	if err != nil {
		return fmt.Errorf("could not inspect data directory %s: %w", dir, err)
	}
	if found != "" && found != engine {
		return fmt.Errorf("%w: found %s, want %s", ErrEngineMismatch, found, engine)
	}
	return nil
}
