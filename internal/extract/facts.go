// Package extract turns input files into DocumentFacts. Extractors only
// report what is written in the document; nothing is inferred.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aerocheck/aerocheck/internal/models"
	"gopkg.in/yaml.v3"
)

// Format of a facts document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// factsDocument is the wire form; pointer elements let us see null entries
type factsDocument struct {
	DocumentType models.DocumentType  `json:"document_type" yaml:"document_type"`
	RawText      string               `json:"raw_text" yaml:"raw_text"`
	Fields       map[string][]*string `json:"fields" yaml:"fields"`
}

// ReadFacts decodes a facts document. Null field values, null list entries,
// unknown keys and unknown document types are rejected with *models.FactsError.
func ReadFacts(r io.Reader, format Format) (*models.DocumentFacts, error) {
	data, err := readInput(r, "facts")
	if err != nil {
		return nil, err
	}

	var doc factsDocument
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			err = errors.New("document is empty")
		}
	default:
		return nil, fmt.Errorf("unsupported facts format %q", format)
	}
	if err != nil {
		return nil, &models.FactsError{Reason: fmt.Sprintf("failed to decode %s facts: %v", format, err)}
	}

	facts, err := doc.toFacts()
	if err != nil {
		return nil, err
	}
	if err := facts.Validate(); err != nil {
		return nil, err
	}
	return facts, nil
}

func (d *factsDocument) toFacts() (*models.DocumentFacts, error) {
	facts := &models.DocumentFacts{
		DocumentType: d.DocumentType,
		RawText:      d.RawText,
		Fields:       make(map[string][]string, len(d.Fields)),
	}

	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entries := d.Fields[name]
		if entries == nil {
			return nil, &models.FactsError{Reason: fmt.Sprintf("field %q is null", name)}
		}
		values := make([]string, 0, len(entries))
		for i, e := range entries {
			if e == nil {
				return nil, &models.FactsError{Reason: fmt.Sprintf("field %q has a null entry at index %d", name, i)}
			}
			values = append(values, *e)
		}
		facts.Fields[name] = values
	}
	return facts, nil
}
