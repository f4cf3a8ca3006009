package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteAtomic marshals v as pretty-printed JSON and replaces path with it
// atomically: the bytes go to a temporary file in the same directory which
// is then renamed over the destination. readers either see the previous
// complete file or the new complete file, never a partial write.
func WriteAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp := path + ".tmp"
	err = os.WriteFile(tmp, data, 0644)
	if err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	err = os.Rename(tmp, path)
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// Read unmarshals path into out. a missing file surfaces as os.ErrNotExist
// so callers can treat "never written" separately from corruption.
func Read(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
