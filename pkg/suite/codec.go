package suite

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"digital.vasic.expectations/pkg/expectation"
)

// document is the interchange shape of a Suite.
type document struct {
	Expectations []*expectation.Configuration `json:"expectations" yaml:"expectations"`
	AssetName    *string                      `json:"data_asset_name" yaml:"data_asset_name"`
	Name         string                       `json:"expectation_suite_name" yaml:"expectation_suite_name"`
	AssetType    *string                      `json:"data_asset_type" yaml:"data_asset_type"`
	Meta         map[string]any               `json:"meta" yaml:"meta"`
}

func (s *Suite) document() document {
	meta := s.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	return document{
		Expectations: s.Expectations(),
		AssetName:    s.AssetName,
		Name:         s.Name,
		AssetType:    s.AssetType,
		Meta:         meta,
	}
}

func (s *Suite) fromDocument(doc document) error {
	meta := map[string]any{}
	if doc.Meta != nil {
		for k, v := range doc.Meta {
			cv, err := expectation.Canonicalize(v)
			if err != nil {
				return fmt.Errorf("decoding suite meta %s: %w", k, err)
			}
			meta[k] = cv
		}
	}

	list := make([]*expectation.Configuration, 0, len(doc.Expectations))
	for i, e := range doc.Expectations {
		if e == nil {
			return fmt.Errorf("decoding suite: expectation %d is null", i)
		}
		list = append(list, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Name = doc.Name
	s.AssetName = doc.AssetName
	s.AssetType = doc.AssetType
	s.Meta = meta
	s.expectations = list
	if s.catalog == nil {
		s.catalog = defaultCatalog{}
	}
	return nil
}

// MarshalJSON encodes s in its interchange shape.
func (s *Suite) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.document())
}

// UnmarshalJSON decodes a suite, re-validating every
// expectation. The version marker is kept as found.
func (s *Suite) UnmarshalJSON(data []byte) error {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decoding suite: %w", err)
	}
	return s.fromDocument(doc)
}

// MarshalYAML encodes s with the JSON field names.
func (s *Suite) MarshalYAML() (any, error) {
	doc := s.document()
	doc.Meta = expectation.YAMLMap(doc.Meta)
	return doc, nil
}

// UnmarshalYAML decodes a suite from YAML.
func (s *Suite) UnmarshalYAML(node *yaml.Node) error {
	var doc document
	if err := node.Decode(&doc); err != nil {
		return fmt.Errorf("decoding suite: %w", err)
	}
	return s.fromDocument(doc)
}

// FromJSON decodes a suite that uses c to interpret kwargs.
func FromJSON(data []byte, c Catalog) (*Suite, error) {
	s := newBare("")
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	s.SetCatalog(c)
	return s, nil
}

// ToYAML encodes s as YAML.
func (s *Suite) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}

// FromYAML decodes a suite that uses c to interpret kwargs.
func FromYAML(data []byte, c Catalog) (*Suite, error) {
	s := newBare("")
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	s.SetCatalog(c)
	return s, nil
}
