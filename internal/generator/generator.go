// Package generator turns a free-text description into project source
// files. Results always contain at least one file: generators that cannot
// parse a usable answer fall back to a fixed skeleton for the language.
package generator

import (
	"context"
	"strings"

	"github.com/motia-studio/engine/internal/models"
)

// MinDescriptionLength is the shortest description accepted for generation.
const MinDescriptionLength = 10

// Request is the input of a generation call.
type Request struct {
	Description string
	Language    models.Language
	Features    []string
}

// Generator produces project files for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]models.ProjectFile, error)
	Name() string
}

// ExtractProjectName picks a display name from keywords in the description.
func ExtractProjectName(description string) string {
	d := strings.ToLower(description)
	switch {
	case strings.Contains(d, "payment") || strings.Contains(d, "stripe"):
		return "Payment Processing System"
	case strings.Contains(d, "todo") || strings.Contains(d, "task"):
		return "Todo API"
	case strings.Contains(d, "webhook"):
		return "Webhook Handler"
	case strings.Contains(d, "ai") || strings.Contains(d, "agent"):
		return "AI Agent Workflow"
	case strings.Contains(d, "ecommerce") || strings.Contains(d, "shop"):
		return "E-commerce Backend"
	default:
		return "Custom Backend API"
	}
}

// Validate returns advisory warnings about a generated file set.
func Validate(files []models.ProjectFile) []string {
	if len(files) == 0 {
		return []string{"No files generated"}
	}
	for _, f := range files {
		if strings.Contains(f.Path, "workflow") || strings.Contains(f.Path, "main") {
			return nil
		}
	}
	return []string{"Missing main workflow file"}
}
