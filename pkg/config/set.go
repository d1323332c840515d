package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Set applies one "section.key=value" assignment. The value is parsed
// according to the key's current type; list values are comma separated.
func (c *Config) Set(assignment string) error {
	parts := strings.SplitN(assignment, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid format: expected 'section.key=value'")
	}

	keyPath := strings.Split(strings.TrimSpace(parts[0]), ".")
	value := strings.TrimSpace(parts[1])
	if len(keyPath) != 2 {
		return fmt.Errorf("invalid key format: expected 'section.key'")
	}
	section, key := keyPath[0], keyPath[1]

	snap := *c
	for _, list := range []*[]string{
		&snap.Provider.Tokens, &snap.Monitor.FallbackURLs, &snap.API.PreviewAliases,
	} {
		if *list == nil {
			*list = []string{}
		}
	}

	data, err := toml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	var doc map[string]map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	sec, ok := doc[section]
	if !ok {
		return fmt.Errorf("unknown section: %s", section)
	}
	current, ok := sec[key]
	if !ok {
		return fmt.Errorf("unknown %s key: %s", section, key)
	}

	parsed, err := parseLike(current, value)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", assignment, err)
	}
	sec[key] = parsed

	data, err = toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	next := &Config{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(next); err != nil {
		return fmt.Errorf("failed to apply %s: %w", assignment, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = *next
	return nil
}

func parseLike(current any, value string) (any, error) {
	switch current.(type) {
	case int64:
		return strconv.ParseInt(value, 10, 64)
	case float64:
		return strconv.ParseFloat(value, 64)
	case bool:
		return strconv.ParseBool(value)
	case []any:
		out := []any{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	default:
		return value, nil
	}
}
