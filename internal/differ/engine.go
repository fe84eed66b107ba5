// Package differ compares two issued compliance reports.
package differ

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aerocheck/aerocheck/internal/models"
	"github.com/aerocheck/aerocheck/internal/report"
	"github.com/wI2L/jsondiff"
)

// ChangeType indicates what kind of difference was detected
type ChangeType string

const (
	ChangeNewFinding      ChangeType = "new_finding"
	ChangeResolvedFinding ChangeType = "resolved_finding"
	ChangeFindingChanged  ChangeType = "finding_changed"
	ChangeStatus          ChangeType = "status"
	ChangeScore           ChangeType = "risk_score"
	ChangeExposure        ChangeType = "estimated_risk"
)

// Change is one translated difference
type Change struct {
	Type     ChangeType    `json:"type"`
	Rule     string        `json:"rule,omitempty"`
	Severity SeverityLevel `json:"-"`
	Level    string        `json:"severity"`
	Message  string        `json:"message"`
}

// Result contains the complete diff result
type Result struct {
	HasChanges bool           `json:"has_changes"`
	OldStatus  models.Status  `json:"old_status"`
	NewStatus  models.Status  `json:"new_status"`
	ScoreDelta int            `json:"score_delta"`
	Changes    []Change       `json:"changes"`
	Patches    jsondiff.Patch `json:"-"`
}

// snapshot is the part of an envelope that is compared; metadata is ignored
type snapshot struct {
	Status        models.Status             `json:"status"`
	RiskScore     int                       `json:"risk_score"`
	EstimatedRisk report.Exposure           `json:"estimated_risk"`
	Findings      map[string]report.Finding `json:"findings"`
}

func toSnapshot(env *report.Envelope) snapshot {
	c := snapshot{
		Status:        env.Status,
		RiskScore:     env.RiskScore,
		EstimatedRisk: env.Summary.EstimatedRisk,
		Findings:      make(map[string]report.Finding, len(env.Violations)+len(env.Warnings)),
	}
	for _, f := range env.Violations {
		c.Findings[f.Rule] = f
	}
	for _, f := range env.Warnings {
		c.Findings[f.Rule] = f
	}
	return c
}

// Parse decodes an issued report envelope
func Parse(data []byte) (*report.Envelope, error) {
	var env report.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("not a compliance report: %w", err)
	}
	if env.Status != models.StatusPass && env.Status != models.StatusFail {
		return nil, fmt.Errorf("not a compliance report: missing status")
	}
	return &env, nil
}

// CompareJSON diffs two encoded envelopes
func CompareJSON(oldData, newData []byte) (*Result, error) {
	oldEnv, err := Parse(oldData)
	if err != nil {
		return nil, fmt.Errorf("old report: %w", err)
	}
	newEnv, err := Parse(newData)
	if err != nil {
		return nil, fmt.Errorf("new report: %w", err)
	}
	return Compare(oldEnv, newEnv)
}

// Compare diffs two envelopes and translates the patch into changes
func Compare(oldEnv, newEnv *report.Envelope) (*Result, error) {
	oldC, newC := toSnapshot(oldEnv), toSnapshot(newEnv)

	patch, err := jsondiff.Compare(oldC, newC)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}

	changes := translate(patch, oldC, newC)
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Severity != changes[j].Severity {
			return changes[i].Severity > changes[j].Severity
		}
		return changes[i].Rule < changes[j].Rule
	})

	return &Result{
		HasChanges: len(changes) > 0,
		OldStatus:  oldEnv.Status,
		NewStatus:  newEnv.Status,
		ScoreDelta: newEnv.RiskScore - oldEnv.RiskScore,
		Changes:    changes,
		Patches:    patch,
	}, nil
}
