package prefs

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// document is a JSON file owned by one store.
type document struct {
	path string
}

// read returns the top-level fields of the stored document. A missing file
// reports exists=false; a document that is not a JSON object yields no
// fields and no error so that callers fall back to defaults.
func (d document) read() (fields map[string]json.RawMessage, exists bool, err error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, true, nil
	}
	return fields, true, nil
}

// write replaces the document atomically: temp file in the same directory,
// fsync, rename. Readers see either the old or the new file.
func (d document) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &PersistenceError{Path: d.path, Err: err}
	}
	if err := writeAtomic(d.path, data); err != nil {
		return &PersistenceError{Path: d.path, Err: err}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	// No-op once the rename succeeded.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// field decodes one raw field into v, reporting success.
func field(fields map[string]json.RawMessage, key string, v any) bool {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
