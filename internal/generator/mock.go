package generator

import (
	"context"
	"embed"
	"strings"
	"time"

	"github.com/motia-studio/engine/internal/models"
)

//go:embed mockfiles
var mockFS embed.FS

type mockFile struct {
	path   string
	source string
}

// mockSets maps a keyword group to the TypeScript files it produces. Order
// matters: the first group whose keyword occurs in the description wins.
var mockSets = []struct {
	keywords []string
	files    []mockFile
}{
	{[]string{"payment", "stripe"}, []mockFile{
		{"src/api/payment.ts", "payment.ts"},
		{"src/workflows/fraud-detection.ts", "fraud-detection.ts"},
	}},
	{[]string{"todo", "task"}, []mockFile{
		{"src/api/todos.ts", "todos.ts"},
		{"src/workflows/reminders.ts", "reminder-workflow.ts"},
	}},
	{[]string{"webhook"}, []mockFile{
		{"src/api/webhooks.ts", "webhooks.ts"},
	}},
	{[]string{"agent", "ai"}, []mockFile{
		{"src/workflows/agent.ts", "agent-workflow.ts"},
	}},
	{[]string{"ecommerce", "shop"}, []mockFile{
		{"src/workflows/checkout.ts", "checkout-workflow.ts"},
	}},
}

var defaultMockFiles = []mockFile{{"src/api/items.ts", "items.ts"}}

// MockGenerator answers from canned files chosen by description keywords.
// Languages other than TypeScript get the fallback skeleton.
type MockGenerator struct {
	delay time.Duration
}

var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator returns a generator that waits delay before answering.
func NewMockGenerator(delay time.Duration) *MockGenerator {
	return &MockGenerator{delay: delay}
}

func (g *MockGenerator) Name() string { return "mock" }

func (g *MockGenerator) Generate(ctx context.Context, req Request) ([]models.ProjectFile, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	lang := models.ValidateLanguage(string(req.Language))
	if lang != models.LanguageTypeScript {
		return Fallback(req.Description, lang), nil
	}

	chosen := pickMockFiles(req.Description)
	files := make([]models.ProjectFile, 0, len(chosen))
	for _, f := range chosen {
		src, err := mockFS.ReadFile("mockfiles/" + f.source)
		if err != nil {
			return nil, err
		}
		files = append(files, models.ProjectFile{
			Path:     f.path,
			Content:  string(src),
			Language: string(models.LanguageTypeScript),
		})
	}
	return files, nil
}

func pickMockFiles(description string) []mockFile {
	d := strings.ToLower(description)
	for _, set := range mockSets {
		for _, kw := range set.keywords {
			if strings.Contains(d, kw) {
				return set.files
			}
		}
	}
	return defaultMockFiles
}
