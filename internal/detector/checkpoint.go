package detector

import (
	"archive/tar"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Checkpoint containers come in several partially-documented layouts: tar
// archives keyed by entry name, JSON envelopes wrapping a base64 weight
// payload, bare payload blobs, and exported directories carrying a data.bin
// (possibly nested under a .data subdirectory). The loader walks a fixed
// cascade of strategies and stops on the first one that applies weights.

// applyFunc installs a weight payload onto a fresh model instance. An error
// means nothing was applied.
type applyFunc func(payload []byte) error

// errNotApplicable marks a strategy that does not recognize the path shape
// at all, as opposed to one that recognized it and failed.
var errNotApplicable = errors.New("not applicable to this path")

// dataFileName is the conventional serialized-data file looked up inside
// checkpoint directories, and dataSubdir the reserved nested directory.
const (
	dataFileName = "data.bin"
	dataSubdir   = ".data"
)

type loadStrategy struct {
	name string
	load func(path string, apply applyFunc) error
}

func loadStrategies() []loadStrategy {
	return []loadStrategy{
		{name: "tar container", load: loadFromTar},
		{name: "envelope file", load: loadFromEnvelopeFile},
		{name: "raw payload", load: loadFromRawPayload},
		{name: "directory fallback", load: loadFromDirectory},
	}
}

// resolveCheckpoint runs the cascade against path, short-circuiting on the
// first strategy that succeeds. On exhaustion it returns a
// CheckpointLoadError carrying every failure reason.
func resolveCheckpoint(path string, apply applyFunc) error {
	var attempts []error
	for _, s := range loadStrategies() {
		err := s.load(path, apply)
		if err == nil {
			return nil
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", s.name, err))
	}
	return &CheckpointLoadError{Path: path, Attempts: attempts}
}

// loadFromTar treats a .tar path as a key-value container. Entries are
// keyed by their base name with the extension trimmed, then probed for
// "model" and "state_dict" in that order.
func loadFromTar(path string, apply applyFunc) error {
	if !strings.HasSuffix(strings.ToLower(path), ".tar") {
		return errNotApplicable
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries := make(map[string][]byte)
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return fmt.Errorf("reading archive entry %q: %w", hdr.Name, err)
		}
		base := filepath.Base(hdr.Name)
		key := strings.TrimSuffix(base, filepath.Ext(base))
		entries[key] = data
	}

	for _, key := range []string{"model", "state_dict"} {
		if payload, ok := entries[key]; ok {
			return apply(payload)
		}
	}
	return fmt.Errorf("no %q or %q entry in archive", "model", "state_dict")
}

// loadFromEnvelopeFile deserializes the path as a JSON checkpoint object.
// Only mappings are handled here; the probe order is "model" first, then
// "state_dict", and no other keys are guessed.
func loadFromEnvelopeFile(path string, apply applyFunc) error {
	data, err := readRegularFile(path)
	if err != nil {
		return err
	}
	envelope, ok := decodeEnvelope(data)
	if !ok {
		return errNotApplicable
	}
	return applyEnvelopeKey(envelope, apply, "model", "state_dict")
}

// loadFromRawPayload applies the file contents directly as a full weight
// payload. It only fires when the contents are not a mapping, which is the
// envelope strategy's territory.
func loadFromRawPayload(path string, apply applyFunc) error {
	data, err := readRegularFile(path)
	if err != nil {
		return err
	}
	if _, ok := decodeEnvelope(data); ok {
		return errNotApplicable
	}
	if len(data) == 0 {
		return errors.New("empty checkpoint file")
	}
	return apply(data)
}

// loadFromDirectory handles checkpoints exported as directories: a data.bin
// inside the directory (or inside a nested .data subdirectory) is probed
// for "model", "state_dict" and "weights" keys, first match wins. A file
// path falls back to its parent directory.
func loadFromDirectory(path string, apply applyFunc) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	dir := path
	if !info.IsDir() {
		dir = filepath.Dir(path)
	}
	return loadFromDataDirectory(dir, apply)
}

func loadFromDataDirectory(dir string, apply applyFunc) error {
	dataPath := filepath.Join(dir, dataFileName)
	if _, err := os.Stat(dataPath); err == nil {
		return loadFromSerializedFile(dataPath, apply)
	}

	nested := filepath.Join(dir, dataSubdir)
	if info, err := os.Stat(nested); err == nil && info.IsDir() {
		return loadFromDataDirectory(nested, apply)
	}
	return fmt.Errorf("no %s or %s/ in %s", dataFileName, dataSubdir, dir)
}

func loadFromSerializedFile(path string, apply applyFunc) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	envelope, ok := decodeEnvelope(data)
	if !ok {
		return fmt.Errorf("%s is not a key-value mapping", path)
	}
	return applyEnvelopeKey(envelope, apply, "model", "state_dict", "weights")
}

func readRegularFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errNotApplicable
	}
	return os.ReadFile(path)
}

// decodeEnvelope reports whether data is a JSON mapping and returns its
// raw members if so.
func decodeEnvelope(data []byte) (map[string]json.RawMessage, bool) {
	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, false
	}
	return envelope, true
}

// applyEnvelopeKey probes keys in order and applies the first present one.
func applyEnvelopeKey(envelope map[string]json.RawMessage, apply applyFunc, keys ...string) error {
	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		payload, err := decodePayload(raw)
		if err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		return apply(payload)
	}
	return fmt.Errorf("no recognized key in checkpoint mapping (looked for %s)",
		strings.Join(keys, ", "))
}

// decodePayload unpacks a base64-encoded weight payload from an envelope
// member.
func decodePayload(raw json.RawMessage) ([]byte, error) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("payload is not a string: %w", err)
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("payload is not valid base64: %w", err)
	}
	if len(payload) == 0 {
		return nil, errors.New("payload is empty")
	}
	return payload, nil
}
