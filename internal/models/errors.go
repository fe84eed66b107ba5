package models

import (
	"fmt"
	"strings"
)

// CatalogError malformed rule configuration; the catalog is never partially usable
type CatalogError struct {
	Source   string
	Problems []string
}

func (e *CatalogError) Error() string {
	prefix := "invalid rule catalog"
	if e.Source != "" {
		prefix = fmt.Sprintf("invalid rule catalog %s", e.Source)
	}
	if len(e.Problems) == 1 {
		return prefix + ": " + e.Problems[0]
	}
	return fmt.Sprintf("%s:\n  %s", prefix, strings.Join(e.Problems, "\n  "))
}

// FactsError malformed document facts, rejected before evaluation
type FactsError struct {
	Reason string
}

func (e *FactsError) Error() string {
	return "invalid document facts: " + e.Reason
}
