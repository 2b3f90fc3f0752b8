package factcheck

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/repoqa/repoqa/pkg/types"
)

// maxDefaultValues bounds how many extracted defaults a note lists
const maxDefaultValues = 3

// defaultValuePattern matches "default: x", "default = x", and quoted
// variants, capturing the value
var defaultValuePattern = regexp.MustCompile(`(?i)default[:\s=]+["']?([^"'\s,]+)["']?`)

// EmbeddingModelRule appends the canonical embedding model names found in
// evidence when the answer to an embedding-model question names none of them.
type EmbeddingModelRule struct{}

// Name implements Rule
func (r *EmbeddingModelRule) Name() string { return "embedding-model" }

// Apply implements Rule
func (r *EmbeddingModelRule) Apply(query, answer string, evidence []types.SourceReference) (string, bool) {
	queryLower := strings.ToLower(query)
	if !strings.Contains(queryLower, "embedding") || !strings.Contains(queryLower, "model") {
		return "", false
	}

	var models []string
	for i := range evidence {
		content := strings.ToLower(evidence[i].Content)
		if strings.Contains(content, "all-minilm") {
			models = appendUnique(models, "all-MiniLM-L6-v2")
		} else if strings.Contains(content, "sentence") && strings.Contains(content, "transformer") {
			models = appendUnique(models, "sentence-transformers")
		}
	}
	if len(models) == 0 {
		return "", false
	}

	answerLower := strings.ToLower(answer)
	for _, model := range models {
		if strings.Contains(answerLower, strings.ToLower(model)) {
			return "", false
		}
	}

	return fmt.Sprintf("\n\nNote: Based on the source code, the actual embedding model appears to be: %s",
		strings.Join(models, ", ")), true
}

// ConfigFilesRule appends the config-bearing evidence paths when the answer
// to a configuration question cites none of them.
type ConfigFilesRule struct{}

// Name implements Rule
func (r *ConfigFilesRule) Name() string { return "config-files" }

// Apply implements Rule
func (r *ConfigFilesRule) Apply(query, answer string, evidence []types.SourceReference) (string, bool) {
	if !strings.Contains(strings.ToLower(query), "config") {
		return "", false
	}

	var configFiles []string
	for i := range evidence {
		if strings.Contains(strings.ToLower(evidence[i].File), "config") {
			configFiles = appendUnique(configFiles, evidence[i].File)
		}
	}
	if len(configFiles) == 0 {
		return "", false
	}

	for _, f := range configFiles {
		if strings.Contains(answer, f) {
			return "", false
		}
	}

	return fmt.Sprintf("\n\nConfiguration is found in: %s", strings.Join(configFiles, ", ")), true
}

// DefaultValuesRule extracts default-looking assignments from evidence and
// appends up to three unique values for default-value questions.
type DefaultValuesRule struct{}

// Name implements Rule
func (r *DefaultValuesRule) Name() string { return "default-values" }

// Apply implements Rule
func (r *DefaultValuesRule) Apply(query, answer string, evidence []types.SourceReference) (string, bool) {
	if !strings.Contains(strings.ToLower(query), "default") {
		return "", false
	}

	var values []string
	for i := range evidence {
		for _, m := range defaultValuePattern.FindAllStringSubmatch(evidence[i].Content, -1) {
			values = appendUnique(values, m[1])
			if len(values) >= maxDefaultValues {
				break
			}
		}
		if len(values) >= maxDefaultValues {
			break
		}
	}
	if len(values) == 0 {
		return "", false
	}

	return fmt.Sprintf("\n\nDefault values found in source: %s", strings.Join(values, ", ")), true
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
