package extract

import (
	"io"
	"regexp"
	"strings"

	"github.com/aerocheck/aerocheck/internal/models"
)

// drawingField pulls one field out of title-block text via the first
// capture group of each pattern
type drawingField struct {
	field    string
	patterns []*regexp.Regexp
}

var drawingFields = []drawingField{
	{models.FieldPartNumber, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:P/N|PART\s+(?:NUMBER|NO\.?)|PN)\s*[:#]?\s*([A-Z0-9\-]*\d[A-Z0-9\-]*)`),
	}},
	{models.FieldRevision, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bREV(?:ISION)?(?:\s*[:.]\s*|\s+)([A-Z0-9]{1,3})\b`),
	}},
	{models.FieldMaterial, []*regexp.Regexp{
		regexp.MustCompile(`(?im)\b(?:MATERIAL|MATL)\s*:\s*([^\n]+?)\s*$`),
	}},
	{models.FieldMaterialSpec, []*regexp.Regexp{
		regexp.MustCompile(`(?im)\b(?:MATERIAL|MATL)\s+SPEC(?:IFICATION)?\s*:\s*([^\n]+?)\s*$`),
		regexp.MustCompile(`(?im)\b(?:MATERIAL|MATL)\s*:[^\n]*?\bPER\s+([^\n]+?)\s*$`),
	}},
	// line-anchored so SURFACE FINISH (roughness) is not a treatment
	{models.FieldSurfaceTreat, []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*(?:FINISH|SURFACE\s+TREATMENT|PLATING|COATING)\s*:\s*([^\n]+?)\s*$`),
	}},
	{models.FieldHeatTreatment, []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*HEAT\s+TREAT(?:MENT)?\s*:\s*([^\n]+?)\s*$`),
	}},
	{models.FieldCAGECode, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bCAGE(?:\s+CODE)?\s*[:#]?\s*([0-9A-Z]{5})\b`),
	}},
	{models.FieldSerialNumber, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:S/N|SERIAL\s+(?:NUMBER|NO\.?))\s*[:#]\s*([A-Z0-9\-]+)`),
	}},
	{models.FieldLotNumber, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:L/N|LOT\s+(?:NUMBER|NO\.?))\s*[:#]\s*([A-Z0-9\-]+)`),
	}},
	{"surface_finish", []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bSURFACE\s+FINISH\s*[:]?\s*(\d+(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:Ra|RMS)\b`),
	}},
	{"tolerance", []*regexp.Regexp{
		regexp.MustCompile(`(±\s?\d*\.?\d+)`),
	}},
}

// ReadDrawing reads drawing text already extracted from the drawing file.
// The text is kept as raw_text; a field appears only when a pattern finds it.
func ReadDrawing(r io.Reader) (*models.DocumentFacts, error) {
	data, err := readInput(r, "drawing text")
	if err != nil {
		return nil, err
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")

	facts := &models.DocumentFacts{
		DocumentType: models.DocumentDrawing,
		RawText:      text,
		Fields:       map[string][]string{},
	}

	for _, df := range drawingFields {
		var values []string
		seen := map[string]bool{}
		for _, re := range df.patterns {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				v := strings.TrimSpace(m[1])
				if v == "" || seen[v] {
					continue
				}
				seen[v] = true
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			facts.Fields[df.field] = values
		}
	}

	return facts, nil
}
