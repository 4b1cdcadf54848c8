package records

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// WriteYAML exports r into dir and returns the path of the written file. There
// is one file per session; saving a session again overwrites it.
func WriteYAML(dir string, r Record) (string, error) {
	if dir == "" {
		return "", errors.New("records folder is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create records folder %s", dir)
	}
	if r.SessionID == "" {
		return "", errors.New("record has no session id")
	}
	name := unsafeFileChars.ReplaceAllString(r.SessionID, "_") + ".yaml"
	path := filepath.Join(dir, name)

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", errors.Wrap(err, "encode record")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write record %s", path)
	}
	return path, nil
}

// ReadYAML loads a record written by WriteYAML.
func ReadYAML(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, errors.Wrapf(err, "read record %s", path)
	}
	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Record{}, errors.Wrapf(err, "decode record %s", path)
	}
	return r, nil
}
