// Package emit writes declaration trees as YAML, JSON or CBOR documents.
package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/hipabi/hdrparse/ast"
)

type Format int

const (
	YAML Format = iota
	JSON
	CBOR
)

var formatNames = []string{"yaml", "json", "cbor"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if strings.EqualFold(s, name) {
			return Format(i), nil
		}
	}
	if strings.EqualFold(s, "yml") {
		return YAML, nil
	}
	return YAML, fmt.Errorf("unknown format %q (want yaml, json or cbor)", s)
}

// Set and Type let a Format be used as a command line flag.
func (f *Format) Set(s string) error {
	v, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

func (f *Format) Type() string {
	return "format"
}

// Binary reports whether documents in f are not text.
func (f Format) Binary() bool {
	return f == CBOR
}

// Write encodes units to w. YAML output has one document per unit, each
// with an explicit start marker. JSON and CBOR write a single value for one
// unit and an array otherwise.
func Write(w io.Writer, f Format, units ...*ast.TranslationUnit) error {
	trees := make([]any, len(units))
	for i, tu := range units {
		trees[i] = Tree(tu)
	}

	switch f {
	case YAML:
		for _, t := range trees {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(t); err != nil {
				return err
			}
			if err := enc.Close(); err != nil {
				return err
			}
		}
		return nil
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(trees) == 1 {
			return enc.Encode(trees[0])
		}
		return enc.Encode(trees)
	case CBOR:
		em, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return err
		}
		var v any = plain(trees)
		if len(trees) == 1 {
			v = plain(trees[0])
		}
		return em.NewEncoder(w).Encode(v)
	}
	return fmt.Errorf("unknown format %s", f)
}

// Marshal returns the encoding of units in f.
func Marshal(f Format, units ...*ast.TranslationUnit) ([]byte, error) {
	var b bytes.Buffer
	if err := Write(&b, f, units...); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
