package config

import (
	"fmt"
	"os"
	"strings"
)

// ParseEnvFile reads KEY=VALUE lines. Blank lines, comments and an "export "
// prefix are accepted; surrounding quotes are stripped from values.
func ParseEnvFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}
	var envVars []string
	for _, line := range strings.Split(string(data), "\n") {
		s := strings.TrimSpace(line)
		if s == "" || s[0] == '#' {
			continue
		}
		s = strings.TrimPrefix(s, "export ")
		eqIdx := strings.IndexByte(s, '=')
		if eqIdx <= 0 {
			continue
		}
		key := strings.TrimSpace(s[:eqIdx])
		val := stripQuotes(strings.TrimSpace(s[eqIdx+1:]))
		envVars = append(envVars, key+"="+val)
	}
	return envVars, nil
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
