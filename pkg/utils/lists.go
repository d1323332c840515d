package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadList reads a list of values (tokens, fallback URLs) from a file.
// YAML files must contain a sequence of strings; any other file is split on
// sep, which defaults to a newline. Blank entries are dropped.
func LoadList(path, sep string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read list file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var items []string
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to parse list file %s: %w", path, err)
		}
		return compact(items), nil
	}

	if sep == "" {
		sep = "\n"
	}
	return compact(strings.Split(string(data), unescape(sep))), nil
}

// unescape lets config files spell separators as "\n", "\t" or __NEWLINE__.
func unescape(sep string) string {
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", "__NEWLINE__", "\n")
	return r.Replace(sep)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
