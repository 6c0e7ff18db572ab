package generator

import (
	"fmt"
	"strings"

	"github.com/motia-studio/engine/internal/models"
)

const systemPrompt = "You are an expert Motia backend developer who generates production-ready code."

// BuildPrompt renders the user prompt asking for delimiter-framed files.
func BuildPrompt(req Request) string {
	lang := models.ValidateLanguage(string(req.Language))
	ext := lang.Extension()

	var features string
	if len(req.Features) > 0 {
		features = "\nRequired features: " + strings.Join(req.Features, ", ")
	}

	return fmt.Sprintf(`You are an expert Motia backend code generator. Generate ONLY executable code files - NO tutorials, NO step-by-step instructions, NO markdown formatting.

Project Description: %[1]s%[2]s
Language: %[3]s

CRITICAL INSTRUCTIONS:
1. Generate ONLY executable code files
2. NO "Step 1", "Step 2" or tutorial text
3. NO markdown code blocks or explanations OUTSIDE the file markers
4. Use ONLY the ===FILE:=== marker format shown below
5. Include minimal inline comments within the code only

Required Files:
- Main workflow file (src/workflow.%[4]s)
- Step definitions (src/steps.%[4]s)
- Configuration (src/config.%[4]s)
- README.md with API documentation

Code Requirements:
- Use Motia Steps and Workflows properly
- Include comprehensive error handling
- Production-ready with validation
- Follow %[3]s best practices
- Add retry logic for critical operations

OUTPUT FORMAT - Use EXACTLY this structure (NO other text allowed):
===FILE: path/to/file===
[actual executable code here]
===END FILE===

===FILE: another/file===
[actual executable code here]
===END FILE===

Generate the complete project now using ONLY the ===FILE:=== markers:`, req.Description, features, lang, ext)
}
