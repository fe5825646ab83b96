package compost

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/oklog/ulid/v2"

	"backend-roomreq/internal/models"
)

// maxPromptContentChars bounds how much project content goes to the LLM.
const maxPromptContentChars = 8000

const extractionSystemPrompt = "You are an expert software architect specializing in component extraction and reusability analysis."

const extractionPromptTemplate = `Project Description: {{projectDescription}}

Project Content:
{{{content}}}

Basic Components Identified: {{basicCount}}

Please analyze this project and provide enhanced component extraction with the following:

1. Identify the most reusable components from the content
2. Improve component titles and descriptions
3. Enhance tags and categorization
4. Adjust reusability scores (0-100)
5. Identify dependencies between components
6. Suggest component combinations or splits

Respond in JSON format:
{
  "components": [
    {
      "title": "Component Title",
      "description": "Brief description of what this component does",
      "type": "code|documentation|configuration|design|other",
      "tags": ["tag1", "tag2"],
      "reusabilityScore": 85,
      "dependencies": ["dependency1"],
      "content": "actual component content",
      "improvements": "suggested improvements for reusability"
    }
  ],
  "insights": "Overall insights about the project's reusable components"
}

Focus on components that would be valuable in a marketplace for other developers.
`

// EnhanceResult is the tagged outcome of the LLM re-analysis: either the
// parsed components, or the untouched heuristic chunks with the reason the
// parse fell back. Callers must look at Fallback instead of truthy-checking.
type EnhanceResult struct {
	Components []models.ComponentChunk
	Fallback   bool
	Reason     string
}

func parsed(components []models.ComponentChunk) EnhanceResult {
	return EnhanceResult{Components: components}
}

func fallback(reason string, heuristic []models.ComponentChunk) EnhanceResult {
	return EnhanceResult{Components: heuristic, Fallback: true, Reason: reason}
}

// BuildExtractionPrompt renders the re-analysis prompt for the combined
// project content.
func BuildExtractionPrompt(content, projectDescription string, basicCount int) (string, error) {
	if len(content) > maxPromptContentChars {
		content = content[:maxPromptContentChars] + " ...(truncated)"
	}
	out, err := mustache.Render(extractionPromptTemplate, map[string]any{
		"projectDescription": projectDescription,
		"content":            content,
		"basicCount":         basicCount,
	})
	if err != nil {
		return "", fmt.Errorf("rendering extraction prompt: %w", err)
	}
	return out, nil
}

// aiComponent is the loosely-shaped component object the LLM returns.
type aiComponent struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Type             string          `json:"type"`
	Tags             []string        `json:"tags"`
	ReusabilityScore json.RawMessage `json:"reusabilityScore"`
	Dependencies     []string        `json:"dependencies"`
	Content          string          `json:"content"`
}

type aiResponse struct {
	Components []aiComponent `json:"components"`
	Insights   string        `json:"insights"`
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// ParseAIResponse turns the LLM's reply into chunks. Any shape problem
// returns the heuristic chunks unchanged, tagged as a fallback.
func ParseAIResponse(responseContent string, heuristic []models.ComponentChunk) EnhanceResult {
	if strings.TrimSpace(responseContent) == "" {
		return fallback("empty response", heuristic)
	}

	raw := jsonObjectRe.FindString(responseContent)
	if raw == "" {
		return fallback("no JSON object in response", heuristic)
	}

	var resp aiResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return fallback("invalid JSON: "+err.Error(), heuristic)
	}
	if len(resp.Components) == 0 {
		return fallback("no components in response", heuristic)
	}

	batch := ulid.Make().String()
	chunks := make([]models.ComponentChunk, 0, len(resp.Components))
	for i, comp := range resp.Components {
		title := comp.Title
		if title == "" {
			title = fmt.Sprintf("Component %d", i+1)
		}
		tags := comp.Tags
		if tags == nil {
			tags = []string{}
		}
		chunks = append(chunks, models.ComponentChunk{
			ID:               fmt.Sprintf("ai_component_%s_%d", batch, i),
			Title:            title,
			Content:          comp.Content,
			Type:             componentType(comp.Type),
			Tags:             tags,
			ReusabilityScore: scoreOrDefault(comp.ReusabilityScore),
			Dependencies:     comp.Dependencies,
		})
	}
	return parsed(chunks)
}

func componentType(t string) models.ComponentType {
	switch models.ComponentType(t) {
	case models.ComponentCode, models.ComponentDocumentation, models.ComponentConfiguration, models.ComponentDesign:
		return models.ComponentType(t)
	}
	return models.ComponentOther
}

// scoreOrDefault accepts only a JSON number for the score; anything else
// gets the base score. Clamped either way.
func scoreOrDefault(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return baseReusabilityScore
	}
	return ClampScore(int(f))
}
