package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-hebench/timing"
)

// Document is the persisted layout of a report.
type Document struct {
	Version    int                  `json:"version"    yaml:"version"    cbor:"version"`
	Header     Header               `json:"header"     yaml:"header"     cbor:"header"`
	Entries    []Entry              `json:"entries"    yaml:"entries"    cbor:"entries"`
	Events     []timing.TimingEvent `json:"events"     yaml:"events"     cbor:"events"`
	Validation Validation           `json:"validation" yaml:"validation" cbor:"validation"`
	Footer     []string             `json:"footer"     yaml:"footer"     cbor:"footer"`
}

// reportEncMode is the canonical CBOR encoder mode for reports.
var reportEncMode cbor.EncMode

// reportDecMode is the CBOR decoder mode for reports.
var reportDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	reportEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create report CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	reportDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create report CBOR decoder mode: %v", err))
	}
}

// Document returns the persisted layout of the report.
func (r *Report) Document() Document {
	return Document{
		Version:    DocumentVersion,
		Header:     r.Header(),
		Entries:    r.Entries(),
		Events:     r.Events(),
		Validation: r.Validation(),
		Footer:     r.Footer(),
	}
}

// FromDocument rebuilds a report from its persisted layout.
func FromDocument(doc Document) (*Report, error) {
	if doc.Version != DocumentVersion {
		return nil, fmt.Errorf("unsupported report version %d", doc.Version)
	}
	if doc.Header.RunID == "" {
		return nil, fmt.Errorf("report has no run id")
	}
	return &Report{
		header:     doc.Header,
		entries:    doc.Entries,
		events:     doc.Events,
		validation: doc.Validation,
		footer:     doc.Footer,
	}, nil
}

// MarshalJSON encodes the report document.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Document())
}

// UnmarshalJSON decodes a report document into r.
func (r *Report) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	decoded, err := FromDocument(doc)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Document()); err != nil {
		return fmt.Errorf("failed to encode report %s: %w", r.RunID(), err)
	}
	return nil
}

// ReadJSON reads a report written by WriteJSON.
func ReadJSON(rd io.Reader) (*Report, error) {
	var doc Document
	if err := json.NewDecoder(rd).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return FromDocument(doc)
}

// EncodeCBOR encodes the report as canonical CBOR.
func (r *Report) EncodeCBOR() ([]byte, error) {
	data, err := reportEncMode.Marshal(r.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode report %s: %w", r.RunID(), err)
	}
	return data, nil
}

// DecodeCBOR decodes a report encoded by EncodeCBOR.
func DecodeCBOR(data []byte) (*Report, error) {
	var doc Document
	if err := reportDecMode.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return FromDocument(doc)
}

// WriteYAML exports the report document as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r.Document()); err != nil {
		return fmt.Errorf("failed to export report %s: %w", r.RunID(), err)
	}
	return enc.Close()
}

// WriteJSON writes the session as indented JSON.
func (s *Session) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode session %s: %w", s.ID, err)
	}
	return nil
}

// EncodeCBOR encodes the session as canonical CBOR.
func (s *Session) EncodeCBOR() ([]byte, error) {
	data, err := reportEncMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", s.ID, err)
	}
	return data, nil
}

// DecodeSessionCBOR decodes a session encoded by Session.EncodeCBOR.
func DecodeSessionCBOR(data []byte) (*Session, error) {
	var s Session
	if err := reportDecMode.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}
