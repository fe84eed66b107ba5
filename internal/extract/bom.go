package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/aerocheck/aerocheck/internal/models"
)

// bomColumns maps a BOM header spelling to its canonical field.
// Keys are lower-case with single spaces.
var bomColumns = map[string]string{
	"part number":            models.FieldPartNumber,
	"p/n":                    models.FieldPartNumber,
	"pn":                     models.FieldPartNumber,
	"part":                   models.FieldPartNumber,
	"part no":                models.FieldPartNumber,
	"item number":            models.FieldPartNumber,
	"material":               models.FieldMaterial,
	"matl":                   models.FieldMaterial,
	"mat":                    models.FieldMaterial,
	"material spec":          models.FieldMaterial,
	"composition":            models.FieldMaterial,
	"supplier":               models.FieldSupplier,
	"vendor":                 models.FieldSupplier,
	"manufacturer":           models.FieldSupplier,
	"mfg":                    models.FieldSupplier,
	"description":            models.FieldDescription,
	"desc":                   models.FieldDescription,
	"part description":       models.FieldDescription,
	"qty":                    models.FieldQuantity,
	"quantity":               models.FieldQuantity,
	"amount":                 models.FieldQuantity,
	"revision":               models.FieldRevision,
	"rev":                    models.FieldRevision,
	"export control":         models.FieldExportControl,
	"eccn":                   models.FieldExportControl,
	"itar":                   models.FieldExportControl,
	"usml":                   models.FieldExportControl,
	"lot":                    models.FieldLotNumber,
	"lot number":             models.FieldLotNumber,
	"batch":                  models.FieldLotNumber,
	"serial":                 models.FieldSerialNumber,
	"serial number":          models.FieldSerialNumber,
	"s/n":                    models.FieldSerialNumber,
	"cage":                   models.FieldCAGECode,
	"cage code":              models.FieldCAGECode,
	"melt country":           models.FieldSpecialtyMetal,
	"country of melt":        models.FieldSpecialtyMetal,
	"metal origin":           models.FieldSpecialtyMetal,
	"country":                models.FieldCountry,
	"country of origin":      models.FieldCountry,
	"origin":                 models.FieldCountry,
	"coo":                    models.FieldCountry,
	"supplier country":       models.FieldCountry,
	"material specification": models.FieldMaterialSpec,
	"spec":                   models.FieldMaterialSpec,
	"surface treatment":      models.FieldSurfaceTreat,
	"finish":                 models.FieldSurfaceTreat,
	"plating":                models.FieldSurfaceTreat,
	"coating":                models.FieldSurfaceTreat,
	"heat treatment":         models.FieldHeatTreatment,
	"heat treat":             models.FieldHeatTreatment,
	"temper":                 models.FieldHeatTreatment,
}

// ReadBOM reads a CSV bill of materials. The first row is the header.
// Known headers map to canonical fields; other headers become snake_case
// fields. Every field holds one entry per data row, "" for a blank cell,
// so entry i of any two fields describes the same line item. Rows with no
// value in any kept column are skipped.
func ReadBOM(r io.Reader) (*models.DocumentFacts, error) {
	data, err := readInput(r, "BOM")
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.FactsError{Reason: "BOM is empty"}
	}
	if err != nil {
		return nil, &models.FactsError{Reason: "failed to read BOM header: " + err.Error()}
	}

	// fields in header order; columns maps each column to its field index
	var fields []string
	index := map[string]int{}
	columns := make([]int, len(header))
	for i, h := range header {
		columns[i] = -1
		field := columnField(h)
		if field == "" {
			continue
		}
		if _, ok := index[field]; !ok {
			index[field] = len(fields)
			fields = append(fields, field)
		}
		columns[i] = index[field]
	}

	facts := &models.DocumentFacts{
		DocumentType: models.DocumentBOM,
		Fields:       make(map[string][]string, len(fields)),
	}
	for _, f := range fields {
		facts.Fields[f] = []string{}
	}

	row := make([]string, len(fields))
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &models.FactsError{Reason: "malformed BOM: " + err.Error()}
		}

		clear(row)
		blank := true
		for i, cell := range record {
			if i >= len(columns) || columns[i] < 0 {
				continue
			}
			cell = strings.TrimSpace(cell)
			// a field spelled by two columns keeps the first non-blank cell
			if cell == "" || row[columns[i]] != "" {
				continue
			}
			row[columns[i]] = cell
			blank = false
		}
		if blank {
			continue
		}
		for j, f := range fields {
			facts.Fields[f] = append(facts.Fields[f], row[j])
		}
	}

	if err := facts.Validate(); err != nil {
		return nil, fmt.Errorf("BOM produced invalid facts: %w", err)
	}
	return facts, nil
}

// columnField resolves a header cell to a field name, "" to ignore the column
func columnField(header string) string {
	key := strings.ToLower(strings.Join(strings.Fields(strings.TrimPrefix(header, "\ufeff")), " "))
	if key == "" {
		return ""
	}
	if field, ok := bomColumns[key]; ok {
		return field
	}

	name := snakeCase(key)
	if name == models.FieldRawText {
		return ""
	}
	return name
}

func snakeCase(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if underscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			underscore = false
			continue
		}
		underscore = true
	}
	return b.String()
}
