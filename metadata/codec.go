package metadata

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/syssam/tablegate/dialect"
)

// Format is an artifact encoding.
type Format string

// Supported artifact formats, in lookup order.
const (
	YAML    Format = "yaml"
	Msgpack Format = "msgpack"
)

// Formats lists the artifact formats in lookup order.
var Formats = []Format{YAML, Msgpack}

// Ext returns the file extension of f, with the leading dot.
func (f Format) Ext() string { return "." + string(f) }

// FormatOf returns the format of an artifact path.
func FormatOf(path string) (Format, bool) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return YAML, true
	case ".msgpack":
		return Msgpack, true
	}
	return "", false
}

// Encode writes t to w in format f.
func Encode(w io.Writer, f Format, t *Table) error {
	switch f {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("metadata: encode %s: %w", t.Name, err)
		}
		return enc.Close()
	case Msgpack:
		enc := msgpack.NewEncoder(w)
		enc.SetSortMapKeys(true)
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("metadata: encode %s: %w", t.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("metadata: unknown format %q", f)
	}
}

// Decode reads an artifact in format f and validates it.
func Decode(data []byte, f Format) (*Table, error) {
	t := &Table{}
	var err error
	switch f {
	case YAML:
		err = yaml.Unmarshal(data, t)
	case Msgpack:
		err = msgpack.NewDecoder(bytes.NewReader(data)).Decode(t)
	default:
		return nil, fmt.Errorf("metadata: unknown format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("metadata: decode %s: %w", f, err)
	}
	if t.Columns == nil {
		t.Columns = make(map[string]dialect.Column)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func marshal(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, Msgpack, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortColumns(cols []dialect.Column) {
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].Position != cols[j].Position {
			return cols[i].Position < cols[j].Position
		}
		return cols[i].Name < cols[j].Name
	})
}
