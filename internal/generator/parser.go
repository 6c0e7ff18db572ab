package generator

import (
	"regexp"
	"strings"

	"github.com/motia-studio/engine/internal/models"
)

var fileBlock = regexp.MustCompile(`===FILE:\s*(.+?)===\n([\s\S]*?)===END FILE===`)

// ParseFiles extracts every ===FILE: path=== ... ===END FILE=== block from
// text. Text outside the blocks is ignored. Each file is tagged with the
// requested language.
func ParseFiles(text string, language models.Language) []models.ProjectFile {
	matches := fileBlock.FindAllStringSubmatch(text, -1)
	files := make([]models.ProjectFile, 0, len(matches))
	for _, m := range matches {
		path := strings.TrimSpace(m[1])
		if path == "" {
			continue
		}
		files = append(files, models.ProjectFile{
			Path:     path,
			Content:  strings.TrimSpace(m[2]),
			Language: string(language),
		})
	}
	return files
}

// ParseOrFallback parses text and returns the fallback skeleton for
// description when no blocks are found. The second result reports whether
// the fallback was used.
func ParseOrFallback(text, description string, language models.Language) ([]models.ProjectFile, bool) {
	if files := ParseFiles(text, language); len(files) > 0 {
		return files, false
	}
	return Fallback(description, language), true
}
