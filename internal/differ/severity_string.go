package differ

// SeverityLevel ranks how much a report change matters to a reviewer
type SeverityLevel int

const (
	SeveritySafe     SeverityLevel = iota // improvement or neutral
	SeverityModerate                      // weaker posture, not blocking
	SeverityCritical                      // blocking finding appeared or status fell to FAIL
)

var severityNames = [...]string{
	SeveritySafe:     "info",
	SeverityModerate: "moderate",
	SeverityCritical: "critical",
}

// SeverityString names a level for reports and events
func SeverityString(s SeverityLevel) string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// Worst returns the most severe level among changes; no changes is safe
func Worst(changes []Change) SeverityLevel {
	worst := SeveritySafe
	for _, c := range changes {
		if c.Severity > worst {
			worst = c.Severity
		}
	}
	return worst
}
