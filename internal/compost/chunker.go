package compost

import (
	"fmt"
	"regexp"
	"strings"

	"backend-roomreq/internal/models"
)

// minSectionLength drops fragments too small to be worth extracting.
const minSectionLength = 100

// baseReusabilityScore is the starting point before keyword deltas.
const baseReusabilityScore = 50

var sectionMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\n#{1,6}\s+`),         // markdown headers
	regexp.MustCompile(`\n\n[A-Z][A-Z\s]{10,}\n`), // ALL CAPS header lines
	regexp.MustCompile(`\n\d+\.\s+`),          // numbered sections
	regexp.MustCompile(`\n[-=]{3,}\n`),        // horizontal rules
}

// paragraphBreak marks a blank line followed by a capitalized paragraph.
// RE2 has no lookahead, so the split keeps the matched capital letter.
var paragraphBreak = regexp.MustCompile(`\n\n[A-Z]`)

var (
	importRe  = regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`)
	requireRe = regexp.MustCompile(`require\(['"]([^'"]+)['"]\)`)
)

var techKeywords = []string{"react", "node", "python", "javascript", "typescript", "api", "database", "frontend", "backend"}

var functionalKeywords = []string{"authentication", "validation", "testing", "deployment", "security", "performance"}

// ChunkFile sections a processed file's text and scores each surviving
// section as a candidate component.
func ChunkFile(file models.ProcessedFile, projectDescription string) []models.ComponentChunk {
	var chunks []models.ComponentChunk
	for i, section := range SplitIntoSections(file.Content) {
		section = strings.TrimSpace(section)
		if len(section) <= minSectionLength {
			continue
		}
		title := extractSectionTitle(section)
		if title == "" {
			title = fmt.Sprintf("Section %d from %s", i+1, file.OriginalName)
		}
		chunks = append(chunks, models.ComponentChunk{
			ID:               fmt.Sprintf("%s_chunk_%d", file.ID, i),
			Title:            title,
			Content:          section,
			Type:             inferContentType(section),
			Tags:             extractTags(section, projectDescription),
			ReusabilityScore: CalculateReusabilityScore(section),
			Dependencies:     extractDependencies(section),
		})
	}
	return chunks
}

// SplitIntoSections splits content at each delimiter in order, then keeps
// only non-empty pieces.
func SplitIntoSections(content string) []string {
	sections := []string{content}

	for _, marker := range sectionMarkers {
		var next []string
		for _, section := range sections {
			next = append(next, marker.Split(section, -1)...)
		}
		sections = next
	}

	var next []string
	for _, section := range sections {
		next = append(next, splitParagraphBreaks(section)...)
	}
	sections = next

	out := sections[:0]
	for _, s := range sections {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// splitParagraphBreaks splits at blank lines followed by a capital letter,
// keeping the capital with the following section.
func splitParagraphBreaks(s string) []string {
	locs := paragraphBreak.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return []string{s}
	}
	var parts []string
	start := 0
	for _, loc := range locs {
		parts = append(parts, s[start:loc[0]])
		start = loc[0] + 2 // skip the blank line, keep the capital
	}
	parts = append(parts, s[start:])
	return parts
}

// extractSectionTitle takes the first short line as the title, stripped of
// markdown formatting.
func extractSectionTitle(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) > 3 {
		lines = lines[:3]
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && len(trimmed) < 100 {
			trimmed = regexp.MustCompile(`^#+\s*`).ReplaceAllString(trimmed, "")
			return strings.NewReplacer("*", "", "_", "", "`", "").Replace(trimmed)
		}
	}
	return ""
}

func inferContentType(content string) models.ComponentType {
	lower := strings.ToLower(content)

	if containsAny(lower, "function", "class", "import", "const ", "def ", "public ") {
		return models.ComponentCode
	}
	if containsAny(lower, "config", "setting", ".json", ".yaml", "environment") {
		return models.ComponentConfiguration
	}
	if containsAny(lower, "design", "ui", "interface", "mockup", "wireframe") {
		return models.ComponentDesign
	}
	if containsAny(lower, "how to", "guide", "documentation", "readme", "install") {
		return models.ComponentDocumentation
	}
	return models.ComponentOther
}

func extractTags(content, projectDescription string) []string {
	lower := strings.ToLower(content)
	lowerDesc := strings.ToLower(projectDescription)

	var tags []string
	for _, tech := range techKeywords {
		if strings.Contains(lower, tech) || strings.Contains(lowerDesc, tech) {
			tags = append(tags, tech)
		}
	}
	for _, fn := range functionalKeywords {
		if strings.Contains(lower, fn) {
			tags = append(tags, fn)
		}
	}
	return tags
}

// CalculateReusabilityScore starts at the base and applies fixed deltas for
// structural and red-flag keywords. The result is always clamped to [0,100].
func CalculateReusabilityScore(content string) int {
	score := baseReusabilityScore

	if strings.Contains(content, "function") || strings.Contains(content, "class") {
		score += 20
	}
	if strings.Contains(content, "export") || strings.Contains(content, "module") {
		score += 15
	}
	if strings.Contains(content, "interface") || strings.Contains(content, "type") {
		score += 10
	}
	if strings.Contains(content, "/**") || strings.Contains(content, "//") {
		score += 10
	}
	if strings.Contains(content, "README") || strings.Contains(content, "guide") {
		score += 15
	}
	if strings.Contains(content, "localhost") || strings.Contains(content, "127.0.0.1") {
		score -= 10
	}
	if strings.Contains(content, "TODO") || strings.Contains(content, "FIXME") {
		score -= 5
	}

	return ClampScore(score)
}

// ClampScore bounds a reusability score to the closed interval [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// extractDependencies collects package names from import/require statements,
// skipping relative paths.
func extractDependencies(content string) []string {
	seen := make(map[string]struct{})
	var deps []string
	add := func(dep string) {
		if dep == "" || strings.HasPrefix(dep, ".") {
			return
		}
		if _, ok := seen[dep]; ok {
			return
		}
		seen[dep] = struct{}{}
		deps = append(deps, dep)
	}

	for _, m := range importRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, m := range requireRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	return deps
}

func containsAny(content string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(content, k) {
			return true
		}
	}
	return false
}
