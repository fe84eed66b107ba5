package models

import (
	"strconv"
	"strings"
)

// DocumentType routes rules to documents
type DocumentType string

const (
	DocumentDrawing DocumentType = "drawing"
	DocumentBOM     DocumentType = "bom"
)

// Valid reports whether t is a known document type
func (t DocumentType) Valid() bool {
	return t == DocumentDrawing || t == DocumentBOM
}

// FieldRawText addresses DocumentFacts.RawText from predicates
const FieldRawText = "raw_text"

// Well-known field names produced by the extractors
const (
	FieldPartNumber     = "part_number"
	FieldMaterial       = "material"
	FieldSupplier       = "supplier"
	FieldRevision       = "revision"
	FieldDescription    = "description"
	FieldQuantity       = "quantity"
	FieldExportControl  = "export_control"
	FieldLotNumber      = "lot_number"
	FieldSerialNumber   = "serial_number"
	FieldCAGECode       = "cage_code"
	FieldSpecialtyMetal = "specialty_metal_origin"
	FieldCountry        = "country_of_origin"
	FieldMaterialSpec   = "material_specification"
	FieldSurfaceTreat   = "surface_treatment"
	FieldHeatTreatment  = "heat_treatment"
)

// DocumentFacts normalized output of extraction.
// A missing key means the field is absent; an empty slice means present but empty.
type DocumentFacts struct {
	DocumentType DocumentType        `json:"document_type" yaml:"document_type"`
	RawText      string              `json:"raw_text,omitempty" yaml:"raw_text,omitempty"`
	Fields       map[string][]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Validate rejects malformed facts before evaluation
func (f *DocumentFacts) Validate() error {
	if f == nil {
		return &FactsError{Reason: "facts are nil"}
	}
	if !f.DocumentType.Valid() {
		return &FactsError{Reason: "unknown document_type " + strconv.Quote(string(f.DocumentType))}
	}
	for name := range f.Fields {
		if name == "" {
			return &FactsError{Reason: "empty field name"}
		}
		if name == FieldRawText {
			return &FactsError{Reason: "field name raw_text is reserved"}
		}
	}
	return nil
}

// Values returns the observed values for a field and whether the field is present.
// raw_text is present only when non-empty.
func (f *DocumentFacts) Values(field string) ([]string, bool) {
	if field == FieldRawText {
		if f.RawText == "" {
			return nil, false
		}
		return []string{f.RawText}, true
	}
	v, ok := f.Fields[field]
	return v, ok
}

// HasValue reports whether the field holds at least one non-blank value
func (f *DocumentFacts) HasValue(field string) bool {
	values, ok := f.Values(field)
	if !ok {
		return false
	}
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// ItemCount is the number of non-blank values across all fields
func (f *DocumentFacts) ItemCount() int {
	if f == nil {
		return 0
	}
	n := 0
	for _, values := range f.Fields {
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				n++
			}
		}
	}
	return n
}
