package services

import (
	"regexp"
	"strings"

	model "github.com/Itish41/FranchiseOps/models"
)

var mergeTagPattern = regexp.MustCompile(`\{\{\s*([a-z_]+)\s*\}\}`)

// mergeValues lists the tags available in step text.
func mergeValues(lead model.Lead, locationName string) map[string]string {
	return map[string]string{
		"first_name":     lead.FirstName,
		"last_name":      lead.LastName,
		"full_name":      lead.FullName(),
		"email":          lead.Email,
		"phone":          lead.Phone,
		"pipeline_stage": lead.PipelineStage,
		"location_name":  locationName,
	}
}

// RenderMergeTags substitutes {{tag}} placeholders. Unknown tags are left as written.
func RenderMergeTags(text string, lead model.Lead, locationName string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	values := mergeValues(lead, locationName)
	return mergeTagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		name := mergeTagPattern.FindStringSubmatch(tag)[1]
		if v, ok := values[name]; ok {
			return v
		}
		return tag
	})
}
