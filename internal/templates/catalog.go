// Package templates holds the built-in project templates seeded into the
// store at startup.
package templates

import (
	"embed"
	"fmt"
	"maps"
	"slices"

	"github.com/motia-studio/engine/internal/models"
)

//go:embed files
var filesFS embed.FS

type entry struct {
	meta  models.Template
	files map[string]string // project path -> embedded source
}

var catalog = []entry{
	{
		meta: models.Template{
			ID:          "rest-api-crud",
			Name:        "REST API with CRUD",
			Description: "Full-featured REST API with database operations, validation, error handling, and authentication",
			Category:    "API",
			Difficulty:  models.Beginner,
			DeployTime:  "10s",
			Features:    []string{"CRUD Operations", "Input Validation", "Error Handling", "JWT Auth"},
			UseCases:    []string{"Inventory services", "Admin backends", "Mobile app APIs"},
		},
		files: map[string]string{
			"src/api/items.ts":       "rest-api-crud/items.ts",
			"src/middleware/auth.ts": "rest-api-crud/auth.ts",
		},
	},
	{
		meta: models.Template{
			ID:          "ai-agent-workflow",
			Name:        "AI Agent Workflow",
			Description: "Multi-step AI processing pipeline with OpenAI integration, state management, and retry logic",
			Category:    "AI",
			Difficulty:  models.Intermediate,
			DeployTime:  "12s",
			Features:    []string{"OpenAI Integration", "Durable Workflows", "State Management", "Error Recovery"},
			UseCases:    []string{"Document analysis", "Support ticket triage"},
		},
		files: map[string]string{
			"src/workflows/ai-analysis.ts": "ai-agent-workflow/ai-analysis.ts",
		},
	},
	{
		meta: models.Template{
			ID:          "job-queue",
			Name:        "Background Job Queue",
			Description: "Async task processing with exponential backoff, job scheduling, and comprehensive monitoring",
			Category:    "Jobs",
			Difficulty:  models.Intermediate,
			DeployTime:  "8s",
			Features:    []string{"Async Processing", "Retry Logic", "Job Scheduling", "Dead Letter Queue"},
			UseCases:    []string{"Transactional email", "Nightly reports"},
		},
		files: map[string]string{
			"src/jobs/email-processor.ts": "job-queue/email-processor.ts",
		},
	},
	{
		meta: models.Template{
			ID:          "ecommerce",
			Name:        "E-commerce Backend",
			Description: "Complete e-commerce system with cart, checkout, Stripe payments, and inventory management",
			Category:    "E-commerce",
			Difficulty:  models.Advanced,
			DeployTime:  "15s",
			Features:    []string{"Product Catalog", "Cart Management", "Stripe Integration", "Inventory Tracking"},
			UseCases:    []string{"Online stores", "Digital goods checkout"},
		},
		files: map[string]string{
			"src/workflows/checkout.ts": "ecommerce/checkout.ts",
		},
	},
	{
		meta: models.Template{
			ID:          "webhook-handler",
			Name:        "Webhook Handler",
			Description: "Secure webhook receiver with signature validation, event processing, and retry mechanisms",
			Category:    "Events",
			Difficulty:  models.Beginner,
			DeployTime:  "8s",
			Features:    []string{"Signature Validation", "Event Processing", "Idempotency", "Error Recovery"},
			UseCases:    []string{"Payment provider callbacks", "Git hosting events"},
		},
		files: map[string]string{
			"src/api/webhooks.ts": "webhook-handler/webhooks.ts",
		},
	},
}

// Builtin returns fresh copies of the built-in templates, in catalog order.
// File order within a template is sorted by path.
func Builtin() ([]models.Template, error) {
	out := make([]models.Template, 0, len(catalog))
	for _, e := range catalog {
		t := e.meta.Clone()
		t.Files = make([]models.ProjectFile, 0, len(e.files))
		for _, path := range slices.Sorted(maps.Keys(e.files)) {
			src, err := filesFS.ReadFile("files/" + e.files[path])
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", t.ID, err)
			}
			t.Files = append(t.Files, models.ProjectFile{
				Path:     path,
				Content:  string(src),
				Language: string(models.LanguageTypeScript),
			})
		}
		out = append(out, t)
	}
	return out, nil
}
