package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/provdir/internal/config"
)

// parseSources turns repeated name=path flags into source configs.
func parseSources(flags []string) ([]config.SourceConfig, error) {
	out := make([]config.SourceConfig, 0, len(flags))
	for _, f := range flags {
		name, path, ok := strings.Cut(f, "=")
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, eris.Errorf("invalid --source %q: want name=path", f)
		}
		out = append(out, config.SourceConfig{Name: name, Path: path})
	}
	return out, nil
}

// openOutput returns stdout when path is empty. The returned close func is
// always safe to call.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "create output file")
	}
	return f, f.Close, nil
}

// encode writes v as indented JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	case config.FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}
