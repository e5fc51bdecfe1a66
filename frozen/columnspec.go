package frozen

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ColumnSpec declares one frozen column: which model it accepts and what is captured from it.
//
// Specs are usually loaded from YAML:
//
//	columns:
//	  - name: shipping_address
//	    source_model: shop.Address
//	    exclude: [internal_note]
//	    select_related: [country]
//	    select_properties: [full_line, country__flag]
//	    max_depth: 4
type ColumnSpec struct {
	Name        string    `json:"name" yaml:"name" validate:"required"`
	SourceModel ModelName `json:"source_model" yaml:"source_model" validate:"required"`
	MaxDepth    int       `json:"max_depth,omitempty" yaml:"max_depth,omitempty" validate:"gte=0"`

	Selection `yaml:",inline"`
}

type columnSpecFile struct {
	Columns []ColumnSpec `yaml:"columns" validate:"required,min=1,dive"`
}

// Validate checks the required fields and the selection of the column.
func (s ColumnSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Join(ErrInvalidColumnSpec, fmt.Errorf("column %q", s.Name), err)
	}

	if err := s.Selection.Validate(); err != nil {
		return errors.Join(ErrInvalidColumnSpec, fmt.Errorf("column %q", s.Name), err)
	}

	return nil
}

// LoadColumnSpecsYAML reads and validates a list of column specs. Unknown keys and duplicate names are rejected.
func LoadColumnSpecsYAML(r io.Reader) ([]ColumnSpec, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var file columnSpecFile
	if err := decoder.Decode(&file); err != nil {
		return nil, errors.Join(ErrInvalidColumnSpec, err)
	}

	if err := validate.Struct(file); err != nil {
		return nil, errors.Join(ErrInvalidColumnSpec, err)
	}

	seen := make(map[string]struct{}, len(file.Columns))
	for _, spec := range file.Columns {
		if err := spec.Validate(); err != nil {
			return nil, err
		}

		if _, ok := seen[spec.Name]; ok {
			return nil, errors.Join(ErrInvalidColumnSpec, fmt.Errorf("duplicate column %q", spec.Name))
		}
		seen[spec.Name] = struct{}{}
	}

	return file.Columns, nil
}

// LoadColumnSpecsFile reads column specs from a YAML file.
func LoadColumnSpecsFile(path string) ([]ColumnSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidColumnSpec, err)
	}
	defer f.Close()

	return LoadColumnSpecsYAML(f)
}
