package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// packageManifest holds the subset of package.json that firebase-ci reads.
type packageManifest struct {
	Version string `json:"version"`
}

// PackageVersion returns the "version" field of the package.json at file.
// A missing file is reported with model.ErrConfigMissing.
func PackageVersion(fs afero.Fs, file string) (string, error) {
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Mark(errors.Wrapf(err, "%s not found", file), model.ErrConfigMissing)
		}
		return "", errors.Wrapf(err, "failed to read %s", file)
	}

	var pkg packageManifest
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "unable to parse %s", file), model.ErrConfigInvalid)
	}
	return pkg.Version, nil
}

// FunctionsExists reports whether the project has a functions folder.
func FunctionsExists(fs afero.Fs) bool {
	ok, _ := afero.DirExists(fs, FunctionsDir)
	return ok
}

// FunctionsNodeModulesExist reports whether functions/node_modules exists.
func FunctionsNodeModulesExist(fs afero.Fs) bool {
	ok, _ := afero.DirExists(fs, path.Join(FunctionsDir, "node_modules"))
	return ok
}

// WriteFile writes data to outputPath, creating parent directories if they
// don't exist.
func WriteFile(fs afero.Fs, outputPath string, data []byte) error {
	dir := filepath.Dir(outputPath)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}
	if err := afero.WriteFile(fs, outputPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", outputPath)
	}
	return nil
}

// SetJSONField sets a top-level field of a JSON object and returns the
// document re-indented with two spaces. Unlike a round trip through
// map[string]any, the original key order is kept so that hand-maintained
// files such as package.json produce minimal diffs. A key that does not
// exist yet is appended.
func SetJSONField(data []byte, key string, value any) ([]byte, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %q", key)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse JSON document")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("JSON document is not an object")
	}

	type field struct {
		key   string
		value json.RawMessage
	}
	var fields []field
	replaced := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON document")
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrapf(err, "failed to parse value of %q", name)
		}
		if name == key {
			raw = encoded
			replaced = true
		}
		fields = append(fields, field{key: name, value: raw})
	}
	if !replaced {
		fields = append(fields, field{key: key, value: encoded})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(f.key)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(f.value)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, errors.Wrap(err, "failed to format JSON document")
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
