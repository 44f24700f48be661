package masterlist

import (
	"strings"

	"github.com/gridops/loadshed-review/models"
)

// dpTypePatterns is ordered; the first group with a matching substring wins
var dpTypePatterns = []struct {
	substrings []string
	dpType     models.DPType
}{
	{substrings: []string{"132", "275"}, dpType: models.DPTypeLPC},
	{substrings: []string{"230"}, dpType: models.DPTypeInterconnector},
	{substrings: []string{"11", "22", "33"}, dpType: models.DPTypeLocalLoad},
}

// missingIDSentinel is the literal id some sheets carry for delivery points without an assignment
const missingIDSentinel = "na"

// ClassifyDPType derives the delivery-point type from the voltage class embedded in an assignment id
func ClassifyDPType(assignmentID string) models.DPType {
	for _, p := range dpTypePatterns {
		for _, sub := range p.substrings {
			if strings.Contains(assignmentID, sub) {
				return p.dpType
			}
		}
	}
	if strings.EqualFold(strings.TrimSpace(assignmentID), missingIDSentinel) {
		return models.DPTypeUnassigned
	}
	return models.DPTypePocket
}
