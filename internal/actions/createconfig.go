package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/firebase-ci/internal/config"
	"github.com/shinji-kodama/firebase-ci/internal/model"
)

// DefaultConfigPath is where createConfig writes when no path is given.
const DefaultConfigPath = "./src/config.js"

// CreateConfig writes the templated ci.createConfig block for this build
// to outputPath. The format follows the extension: ".json" writes indented
// JSON, ".yaml" and ".yml" write YAML, anything else writes an ES module
// with one named export per top-level setting plus a default export.
//
// Missing createConfig settings are logged and ignored. Settings that
// exist but have no block for the project or any fallback are an error.
func (a *Actions) CreateConfig(opts model.Options, rc *config.RC, outputPath string) error {
	if rc.CI == nil || len(rc.CI.CreateConfig) == 0 {
		log.Error().Msg("no createConfig settings found")
		return nil
	}
	if outputPath == "" {
		outputPath = DefaultConfigPath
	}

	name, block := a.selectSettings(opts, rc.CI.CreateConfig)
	if block == nil {
		return errors.Mark(errors.New("valid create config settings could not be loaded"), model.ErrConfigInvalid)
	}
	log.Info().Str("path", outputPath).Str("project", name).Msg("Creating config file")

	data, err := RenderConfig(templateSettings(block, a.templateVars()), outputPath)
	if err != nil {
		return err
	}
	if err := config.WriteFile(a.Fs, filepath.Clean(outputPath), data); err != nil {
		return errors.Wrap(err, "error creating config file")
	}
	return nil
}

// RenderConfig encodes settings in the format selected by the extension of
// outputPath.
func RenderConfig(settings map[string]any, outputPath string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".json":
		data, err := marshalJSON(settings, "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode config as JSON")
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		data, err := yaml.Marshal(settings)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode config as YAML")
		}
		return data, nil
	default:
		return renderModule(settings)
	}
}

// renderModule writes settings as an ES module:
//
//	export const firebase = {
//	  apiKey: "abc",
//	};
//
//	export default { firebase }
func renderModule(settings map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	names := sortedKeys(settings)
	for _, name := range names {
		fmt.Fprintf(&buf, "export const %s = ", name)
		obj, ok := settings[name].(map[string]any)
		if !ok {
			value, err := marshalJSON(settings[name], "")
			if err != nil {
				return nil, errors.Wrapf(err, "failed to encode %s", name)
			}
			fmt.Fprintf(&buf, "%s;\n\n", value)
			continue
		}

		buf.WriteString("{\n")
		for _, child := range sortedKeys(obj) {
			value, err := marshalJSON(obj[child], "")
			if err != nil {
				return nil, errors.Wrapf(err, "failed to encode %s.%s", name, child)
			}
			fmt.Fprintf(&buf, "  %s: %s,\n", child, value)
		}
		buf.WriteString("};\n\n")
	}
	fmt.Fprintf(&buf, "export default { %s }\n", strings.Join(names, ", "))
	return buf.Bytes(), nil
}

// marshalJSON encodes v without HTML escaping, indented when indent is set.
func marshalJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
