package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorst(t *testing.T) {
	resolved := Change{Type: ChangeResolvedFinding, Rule: "AS9100-DOC-002", Severity: SeveritySafe}
	exposure := Change{Type: ChangeExposure, Severity: SeverityModerate}
	itar := Change{Type: ChangeNewFinding, Rule: "ITAR-001", Severity: SeverityCritical}

	tests := []struct {
		name    string
		changes []Change
		want    string
	}{
		{"no changes", nil, "info"},
		{"only improvements", []Change{resolved}, "info"},
		{"exposure grew", []Change{resolved, exposure}, "moderate"},
		{"new blocking finding", []Change{exposure, itar, resolved}, "critical"},
		{"out of range level", []Change{{Severity: SeverityLevel(99)}}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeverityString(Worst(tt.changes)))
		})
	}

	assert.Equal(t, "unknown", SeverityString(SeverityLevel(-1)))
}
