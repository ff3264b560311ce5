package logic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"crmgrip/internal/domain"
)

// recordFile is the YAML layout of a rows file:
//
//	records:
//	  - id: "7"
//	    name: Ada Lovelace
//	    scope: contacts
type recordFile struct {
	Records []domain.Record `yaml:"records"`
}

// DecodeRecords reads records from YAML
func DecodeRecords(r io.Reader) ([]domain.Record, error) {
	var f recordFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	for i, rec := range f.Records {
		if rec.ID == "" {
			return nil, fmt.Errorf("record %d: missing id", i)
		}
		f.Records[i].Scope = domain.NormalizeScope(rec.Scope)
	}
	return f.Records, nil
}

// LoadRecords fills store from a YAML file. An empty path loads the
// built-in sample rows.
func LoadRecords(store RecordStore, path string) (int, error) {
	var src io.Reader = bytes.NewReader(sampleRecords)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("failed to read records file: %w", err)
		}
		src = bytes.NewReader(data)
	}

	records, err := DecodeRecords(src)
	if err != nil {
		return 0, err
	}
	for i := range records {
		rec := records[i]
		store.AddRecord(&rec)
	}
	return len(records), nil
}

// EncodeRecords writes records as YAML
func EncodeRecords(w io.Writer, records []domain.Record) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(recordFile{Records: records}); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return enc.Close()
}

var sampleRecords = []byte(`records:
  - {id: "1", name: Ada Lovelace, scope: contacts, stage: application, company: Analytical Engines}
  - {id: "2", name: Grace Hopper, scope: contacts, stage: processing, company: Navy Labs}
  - {id: "3", name: Katherine Johnson, scope: contacts, stage: underwriting, company: Langley}
  - {id: "4", name: Margaret Hamilton, scope: contacts, stage: approved, company: Draper}
  - {id: "5", name: Radia Perlman, scope: contacts, stage: cleared-to-close, company: DEC}
  - {id: "6", name: Barbara Liskov, scope: contacts, stage: funded, company: MIT}
  - {id: "7", name: Frances Allen, scope: contacts, stage: application, company: IBM}
  - {id: "8", name: Adele Goldberg, scope: contacts, stage: lost, company: PARC, disabled: true}
  - {id: "p1", name: Hopper Realty, scope: partners, company: Hopper Realty}
  - {id: "p2", name: Lovelace Title, scope: partners, company: Lovelace Title}
  - {id: "p3", name: Turing Appraisals, scope: partners, company: Turing Appraisals}
  - {id: "d1", name: Lovelace refinance, scope: pipeline, stage: application}
  - {id: "d2", name: Hopper purchase, scope: pipeline, stage: processing}
  - {id: "d3", name: Johnson HELOC, scope: pipeline, stage: underwriting}
  - {id: "n1", name: Rate lock expiring, scope: notifications}
  - {id: "n2", name: Appraisal received, scope: notifications}
`)
