package task

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

func yamlUnmarshal(content []byte, v any) error {
	return yaml.Unmarshal(content, v)
}

func parseIntLoose(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
