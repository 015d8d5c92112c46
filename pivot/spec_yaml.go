package pivot

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/magpierre/pivotwider/datatable"
)

// specDocument is the YAML form of a Spec:
//
//	key_columns:
//	  - name: key
//	    type: String
//	columns:
//	  - name: estimate_x
//	    value: estimate
//	    key: [x]
type specDocument struct {
	KeyColumns []keyColumnDocument `yaml:"key_columns"`
	Columns    []entryDocument     `yaml:"columns"`
}

type keyColumnDocument struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

type entryDocument struct {
	Name  string        `yaml:"name"`
	Value string        `yaml:"value"`
	Key   []interface{} `yaml:"key,flow"`
}

// MarshalYAML implements yaml.Marshaler.
func (s *Spec) MarshalYAML() (interface{}, error) {
	doc := specDocument{
		KeyColumns: make([]keyColumnDocument, len(s.KeyColumns)),
		Columns:    make([]entryDocument, len(s.Entries)),
	}

	for k, name := range s.KeyColumns {
		values := make([]datatable.Value, 0, len(s.Entries))
		for _, e := range s.Entries {
			if k < len(e.Key) {
				values = append(values, e.Key[k])
			}
		}
		dataType, _, err := commonValueType(values)
		if err != nil {
			return nil, fmt.Errorf("key column %q: %w", name, err)
		}
		doc.KeyColumns[k] = keyColumnDocument{Name: name, Type: dataType.String()}
	}

	for i, e := range s.Entries {
		key := make([]interface{}, len(e.Key))
		for k, v := range e.Key {
			key[k] = yamlScalar(v)
		}
		doc.Columns[i] = entryDocument{Name: e.Name, Value: e.Value, Key: key}
	}
	return doc, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. The decoded spec is validated.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	var doc specDocument
	if err := node.Decode(&doc); err != nil {
		return err
	}

	out := Spec{KeyColumns: make([]string, len(doc.KeyColumns))}
	types := make([]datatable.DataType, len(doc.KeyColumns))
	for k, kc := range doc.KeyColumns {
		out.KeyColumns[k] = kc.Name
		types[k] = datatable.TypeString
		if kc.Type != "" {
			dt, err := datatable.ParseDataType(kc.Type)
			if err != nil {
				return &InvalidSpecError{Reason: fmt.Sprintf("key column %q", kc.Name), Err: err}
			}
			types[k] = dt
		}
	}

	for i, c := range doc.Columns {
		if len(c.Key) != len(types) {
			return &InvalidSpecError{Reason: fmt.Sprintf("entry %d has %d key values, expected %d",
				i, len(c.Key), len(types))}
		}
		key := make([]datatable.Value, len(c.Key))
		for k, raw := range c.Key {
			v, err := decodeKey(raw, types[k])
			if err != nil {
				return &InvalidSpecError{Reason: fmt.Sprintf("entry %d key %q", i, out.KeyColumns[k]), Err: err}
			}
			key[k] = v
		}
		out.Entries = append(out.Entries, SpecEntry{Name: c.Name, Value: c.Value, Key: key})
	}

	if err := ValidateSpec(&out); err != nil {
		return err
	}
	*s = out
	return nil
}

// LoadSpecYAML reads a spec from YAML.
func LoadSpecYAML(r io.Reader) (*Spec, error) {
	var spec Spec
	if err := yaml.NewDecoder(r).Decode(&spec); err != nil {
		if err == io.EOF {
			return nil, &InvalidSpecError{Reason: "empty document"}
		}
		return nil, fmt.Errorf("failed to decode spec: %w", err)
	}
	return &spec, nil
}

// WriteSpecYAML writes spec as YAML.
func WriteSpecYAML(w io.Writer, spec *Spec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return fmt.Errorf("failed to encode spec: %w", err)
	}
	return enc.Close()
}

// yamlScalar returns the YAML representation of a key value. Types without
// a native YAML scalar are written in their parseable text form.
func yamlScalar(v datatable.Value) interface{} {
	if v.IsNull {
		return nil
	}
	switch v.Type {
	case datatable.TypeString, datatable.TypeInt, datatable.TypeFloat, datatable.TypeBool:
		return v.Raw
	}
	return datatable.Text(v)
}

func decodeKey(raw interface{}, to datatable.DataType) (datatable.Value, error) {
	switch x := raw.(type) {
	case nil:
		return datatable.NewNullValue(to), nil
	case string:
		return datatable.Parse(x, to)
	case time.Time:
		if to == datatable.TypeDate {
			return datatable.NewDateValue(x), nil
		}
		return datatable.Cast(datatable.NewValue(x.UTC(), datatable.TypeTimestamp), to)
	}

	v, err := datatable.ValueOf(raw)
	if err != nil {
		return datatable.Value{}, err
	}
	if to == datatable.TypeString {
		return datatable.NewValue(v.Formatted, datatable.TypeString), nil
	}
	return datatable.Cast(v, to)
}
