package emit

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hipabi/hdrparse/ast"
	"github.com/hipabi/hdrparse/parser"
)

func parse(t *testing.T, src string) *ast.TranslationUnit {
	t.Helper()
	tu, err := parser.Parse("test.h", strings.NewReader(src), parser.Options{})
	require.NoError(t, err)
	return tu
}

func TestTreeJSON(t *testing.T) {
	tu := parse(t, "typedef const unsigned long u64;\nint (*fp)(char c, ...);\n")

	b, err := json.Marshal(Tree(tu))
	require.NoError(t, err)

	want := `{"kind":"translation_unit","entities":[` +
		`{"kind":"declaration","storage":":typedef","type":{"kind":"int","const":true,"longness":1,"unsigned":true},` +
		`"declarators":[{"kind":"declarator","name":"u64"}]},` +
		`{"kind":"declaration","type":{"kind":"int"},"declarators":[{"kind":"declarator",` +
		`"indirect_type":{"kind":"pointer","type":{"kind":"function",` +
		`"params":[{"kind":"parameter","type":{"kind":"char"},"name":"c"}],"var_args":true}},"name":"fp"}]}]}`
	assert.Equal(t, want, string(b))
}

func TestExpressions(t *testing.T) {
	tu := parse(t, "enum { A = -1, B = A << 0x2, C = 'x', D = A ? 1 : 0 };")
	e := tu.Entities[0].Type.(*ast.Enum)

	cases := []struct {
		name string
		want string
	}{
		{"A", `{"kind":"negative","expr":{"kind":"int_literal","format":"dec","val":1}}`},
		{"B", `{"kind":"shift_left","expr1":{"kind":"variable","name":"A"},"expr2":{"kind":"int_literal","format":"hex","val":2}}`},
		{"C", `{"kind":"char_literal","val":"'x'"}`},
		{"D", `{"kind":"conditional","cond":{"kind":"variable","name":"A"},"then":{"kind":"int_literal","format":"dec","val":1},"else":{"kind":"int_literal","format":"dec","val":0}}`},
	}

	for i, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.name, e.Members[i].Name)
			b, err := json.Marshal(Expr(e.Members[i].Value))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestTypeKeys(t *testing.T) {
	tu := parse(t, "struct s { volatile signed char c; int bits : 3; long double d[4]; } *const p;")
	decl := tu.Entities[0]

	rec := Type(decl.Type)
	assert.Equal(t, []string{"kind", "name", "members"}, rec.Keys())

	members, ok := rec.Get("members")
	require.True(t, ok)
	require.Len(t, members, 3)

	char := Type(decl.Type.(*ast.Record).Members[0].Type)
	assert.Equal(t, Object{{"kind", "char"}, {"volatile", true}, {"signed", true}}, char)

	bits := declarators(decl.Type.(*ast.Record).Members[1].Declarators)[0].(Object)
	assert.Equal(t, []string{"kind", "name", "num_bits"}, bits.Keys())

	arr := declarators(decl.Type.(*ast.Record).Members[2].Declarators)[0].(Object)
	assert.Equal(t, []string{"kind", "indirect_type", "name"}, arr.Keys())
	indirect, _ := arr.Get("indirect_type")
	assert.Equal(t, []string{"kind", "length"}, indirect.(Object).Keys())

	nested := Type(&ast.Array{Type: &ast.Int{}, Length: &ast.IntLiteral{Value: 2}})
	assert.Equal(t, []string{"kind", "type", "length"}, nested.Keys())

	fn := parse(t, "extern void f(int *wSize);").Entities[0]
	f := declarators(fn.Declarators)[0].(Object)
	assert.Equal(t, []string{"kind", "indirect_type", "name"}, f.Keys())
	ftype, _ := f.Get("indirect_type")
	params, _ := ftype.(Object).Get("params")
	assert.Equal(t, []string{"kind", "type", "name"}, params.([]any)[0].(Object).Keys())

	ptr := declarators(decl.Declarators)[0].(Object)
	indirect, _ = ptr.Get("indirect_type")
	assert.Equal(t, Object{{"kind", "pointer"}, {"const", true}}, indirect)
}

func TestWriteYAML(t *testing.T) {
	tu, err := parser.ParseFile("../parser/testdata/union_nested_fancy.h", parser.Options{})
	require.NoError(t, err)

	var b bytes.Buffer
	require.NoError(t, Write(&b, YAML, tu))
	require.True(t, strings.HasPrefix(b.String(), "---\nkind: translation_unit\n"), b.String())

	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(b.Bytes(), &doc))
	root := doc.Content[0]
	require.Equal(t, yaml.MappingNode, root.Kind)
	assert.Equal(t, "kind", root.Content[0].Value)
	assert.Equal(t, "entities", root.Content[2].Value)

	var m struct {
		Entities []struct {
			Storage string
			Type    struct {
				Kind    string
				Name    string
				Members []struct {
					Type struct {
						Kind    string
						Members []map[string]any
					}
				}
			}
		}
	}
	require.NoError(t, yaml.Unmarshal(b.Bytes(), &m))
	require.Len(t, m.Entities, 1)
	assert.Equal(t, ":typedef", m.Entities[0].Storage)
	assert.Equal(t, "union", m.Entities[0].Type.Kind)
	assert.Equal(t, "hipResourceDesc", m.Entities[0].Type.Name)
	require.Len(t, m.Entities[0].Type.Members, 3)
	assert.Equal(t, "union", m.Entities[0].Type.Members[2].Type.Kind)
	assert.Len(t, m.Entities[0].Type.Members[2].Type.Members, 4)
}

func TestWriteYAMLDocuments(t *testing.T) {
	a := parse(t, "int a;")
	b := parse(t, "#include <stddef.h>\nsize_t b;")

	out, err := Marshal(YAML, a, b)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(out), "---\n"))

	dec := yaml.NewDecoder(bytes.NewReader(out))
	var docs []map[string]any
	for {
		var m map[string]any
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		docs = append(docs, m)
	}

	require.Len(t, docs, 2)
	assert.NotContains(t, docs[0], "includes")
	assert.Equal(t, []any{"stddef.h"}, docs[1]["includes"])
}

func TestWriteJSON(t *testing.T) {
	a := parse(t, "int a;")
	b := parse(t, "char *b;")

	out, err := Marshal(JSON, a)
	require.NoError(t, err)
	var one map[string]any
	require.NoError(t, json.Unmarshal(out, &one))
	assert.Equal(t, "translation_unit", one["kind"])

	out, err = Marshal(JSON, a, b)
	require.NoError(t, err)
	var many []map[string]any
	require.NoError(t, json.Unmarshal(out, &many))
	assert.Len(t, many, 2)
}

func TestWriteCBOR(t *testing.T) {
	tu, err := parser.ParseFile("../parser/testdata/hip_runtime_load_api.h", parser.Options{})
	require.NoError(t, err)

	out, err := Marshal(CBOR, tu)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, cbor.Unmarshal(out, &m))
	assert.Equal(t, "translation_unit", m["kind"])
	assert.Len(t, m["entities"], 11)

	again, err := Marshal(CBOR, tu)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in   string
		want Format
		err  bool
	}{
		{"yaml", YAML, false},
		{"YML", YAML, false},
		{"json", JSON, false},
		{"Cbor", CBOR, false},
		{"xml", YAML, true},
	}

	for _, tt := range cases {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("format mismatch (-want +got):\n%s", diff)
			}
		})
	}

	var f Format
	require.NoError(t, f.Set("json"))
	assert.Equal(t, "json", f.String())
	assert.Error(t, f.Set("toml"))
	assert.True(t, CBOR.Binary())
}
