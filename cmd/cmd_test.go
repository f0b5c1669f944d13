package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hipabi/hdrparse/envconfig"
	"github.com/hipabi/hdrparse/server"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewCLI()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeHeaders(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func TestParse(t *testing.T) {
	envconfig.LoadConfig()
	dir := writeHeaders(t, map[string]string{
		"a.h": "int first;\n",
		"b.h": "int second;\n",
		"c.h": "#ifdef __cplusplus\nint cxx;\n#else\nint c;\n#endif\n",
		"d.h": "int bad(int a b);\nint good;\n",
	})
	a, b := filepath.Join(dir, "a.h"), filepath.Join(dir, "b.h")

	t.Run("yaml in argument order", func(t *testing.T) {
		out, err := run(t, "", "parse", b, a)
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(out, "---\n"))
		assert.Less(t, strings.Index(out, "name: second"), strings.Index(out, "name: first"))
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "", "parse", "--format", "json", a, b)
		require.NoError(t, err)

		var docs []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &docs))
		require.Len(t, docs, 2)
		assert.Equal(t, "translation_unit", docs[0]["kind"])
		assert.Contains(t, out, `"name": "first"`)
	})

	t.Run("defines", func(t *testing.T) {
		out, err := run(t, "", "parse", "-D", "__cplusplus", filepath.Join(dir, "c.h"))
		require.NoError(t, err)
		assert.Contains(t, out, "name: cxx")
		assert.NotContains(t, out, "name: c\n")
	})

	t.Run("lenient", func(t *testing.T) {
		_, err := run(t, "", "parse", filepath.Join(dir, "d.h"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "d.h:1:")

		out, err := run(t, "", "parse", "--lenient", filepath.Join(dir, "d.h"))
		require.NoError(t, err)
		assert.Contains(t, out, "name: good")
	})

	t.Run("stdin", func(t *testing.T) {
		out, err := run(t, "typedef int handle_t;\n", "parse", "-")
		require.NoError(t, err)
		assert.Contains(t, out, "name: handle_t")
	})

	t.Run("output file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.cbor")
		out, err := run(t, "", "parse", "-f", "cbor", "-o", path, a)
		require.NoError(t, err)
		assert.Empty(t, out)

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, cbor.Unmarshal(data, &m))
		assert.Equal(t, "translation_unit", m["kind"])
	})

	t.Run("errors", func(t *testing.T) {
		_, err := run(t, "", "parse", "--format", "xml", a)
		assert.ErrorContains(t, err, "unknown format")

		_, err = run(t, "", "parse", filepath.Join(dir, "missing.h"))
		assert.ErrorIs(t, err, os.ErrNotExist)

		_, err = run(t, "", "parse")
		assert.Error(t, err)
	})
}

func TestFmt(t *testing.T) {
	envconfig.LoadConfig()
	dir := writeHeaders(t, map[string]string{
		"a.h": "int long unsigned y;\n__const char * __restrict s;\n",
		"b.h": "struct node;\n",
	})

	out, err := run(t, "", "fmt", filepath.Join(dir, "a.h"))
	require.NoError(t, err)
	assert.Equal(t, "unsigned long y;\nconst char * restrict s;\n", out)

	out, err = run(t, "", "fmt", filepath.Join(dir, "a.h"), filepath.Join(dir, "b.h"))
	require.NoError(t, err)
	assert.Equal(t, "// "+filepath.Join(dir, "a.h")+"\nunsigned long y;\nconst char * restrict s;\n\n// "+filepath.Join(dir, "b.h")+"\nstruct node;\n", out)
}

func TestList(t *testing.T) {
	envconfig.LoadConfig()
	dir := writeHeaders(t, map[string]string{
		"a.h": "int f(int a);\nenum { RED, GREEN };\ntypedef int handle_t;\n",
	})

	out, err := run(t, "", "list", filepath.Join(dir, "a.h"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"NAME", "KIND", "DETAIL"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"f", "function", "int", "f(int)"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"RED", "constant", "0"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"GREEN", "constant", "1"}, strings.Fields(lines[3]))

	out, err = run(t, "", "list", "--kind", "typedef", filepath.Join(dir, "a.h"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"handle_t", "typedef", "int"}, strings.Fields(lines[1]))

	dir = writeHeaders(t, map[string]string{
		"b.h": "#include <stddef.h>\nsize_t length(const char *s);\n",
	})
	out, err = run(t, "", "list", filepath.Join(dir, "b.h"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"length", "function", "size_t", "length(const", "char", "*)"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"size_t", "external"}, strings.Fields(lines[2]))

	out, err = run(t, "", "list", "--kind", "external", filepath.Join(dir, "b.h"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"size_t", "external"}, strings.Fields(lines[1]))
}

func TestCheck(t *testing.T) {
	envconfig.LoadConfig()
	dir := writeHeaders(t, map[string]string{
		"old.h":     "int f(int a);\nint g(void);\n",
		"renamed.h": "int f(int renamed);\nint g(void);\n",
		"added.h":   "int f(int a);\nint g(void);\nint h(void);\n",
		"changed.h": "int f(long a);\n",
	})
	old := filepath.Join(dir, "old.h")

	out, err := run(t, "", "check", old, filepath.Join(dir, "renamed.h"))
	require.NoError(t, err)
	assert.Contains(t, out, "no changes")

	out, err = run(t, "", "check", old, filepath.Join(dir, "added.h"))
	require.NoError(t, err)
	assert.Contains(t, out, "added")
	assert.Contains(t, out, "int h(void)")

	out, err = run(t, "", "check", old, filepath.Join(dir, "changed.h"))
	require.ErrorIs(t, err, errBreaking)
	assert.Contains(t, out, "int f(int) -> int f(long)")
	assert.Contains(t, out, "removed")
}

func TestRemote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	envconfig.LoadConfig()

	s := &server.Server{}
	ts := httptest.NewServer(s.GenerateRoutes())
	t.Cleanup(ts.Close)
	t.Setenv("HDRPARSE_HOST", ts.URL)

	dir := writeHeaders(t, map[string]string{
		"a.h": "int first;\n",
		"b.h": "int second;\n",
		"c.h": "int first;\nint second;\n",
	})
	a, b := filepath.Join(dir, "a.h"), filepath.Join(dir, "b.h")

	local, err := run(t, "", "parse", a, b)
	require.NoError(t, err)
	remote, err := run(t, "", "parse", "--remote", a, b)
	require.NoError(t, err)
	assert.Equal(t, local, remote)

	out, err := run(t, "", "parse", "--remote", "-f", "json", a, b)
	require.NoError(t, err)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	assert.Len(t, docs, 2)

	_, err = run(t, "", "parse", "--remote", "-f", "cbor", "-o", filepath.Join(t.TempDir(), "x"), a)
	assert.ErrorContains(t, err, "--remote")

	out, err = run(t, "", "check", "--remote", a, filepath.Join(dir, "c.h"))
	require.NoError(t, err)
	assert.Contains(t, out, "second")

	_, err = run(t, "", "check", "--remote", filepath.Join(dir, "c.h"), a)
	assert.ErrorIs(t, err, errBreaking)
}

func TestServeUsage(t *testing.T) {
	usage := envUsage()
	keys := []string{"HDRPARSE_DEBUG", "HDRPARSE_DEFINES", "HDRPARSE_FORMAT", "HDRPARSE_HOST", "HDRPARSE_LENIENT", "HDRPARSE_MAX_BODY", "HDRPARSE_ORIGINS"}

	last := -1
	for _, k := range keys {
		i := strings.Index(usage, k)
		require.Greater(t, i, last, k)
		last = i
	}
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[parse]\nformat = \"json\"\ndefines = [\"WIDE\"]\n"), 0o644))
	t.Cleanup(func() { require.NoError(t, envconfig.SetConfigFile("")) })

	header := filepath.Join(writeHeaders(t, map[string]string{"a.h": "#ifdef WIDE\nlong w;\n#endif\n"}), "a.h")
	out, err := run(t, "", "--config", path, "parse", header)
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "w"`)

	_, err = run(t, "", "--config", filepath.Join(t.TempDir(), "missing.toml"), "parse", header)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigCommand(t *testing.T) {
	out, err := run(t, "", "config", "--example")
	require.NoError(t, err)
	assert.Equal(t, envconfig.GenerateExampleConfig(), out)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	t.Cleanup(func() { require.NoError(t, envconfig.SetConfigFile("")) })
	t.Setenv("HDRPARSE_FORMAT", "json")
	t.Setenv("HDRPARSE_HOST", "")
	t.Setenv("HDRPARSE_MAX_BODY", "")

	out, err = run(t, "", "--config", path, "config")
	require.NoError(t, err)

	rows := make(map[string][]string)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Fields(line)
		rows[fields[0]] = fields[1:]
	}
	assert.Equal(t, []string{"VALUE"}, rows["KEY"])
	assert.Equal(t, []string{"json"}, rows["HDRPARSE_FORMAT"])
	assert.Equal(t, []string{"8388608"}, rows["HDRPARSE_MAX_BODY"])
	assert.Equal(t, []string{"127.0.0.1:7411"}, rows["HDRPARSE_HOST"])
}

func TestLoadDotEnv(t *testing.T) {
	t.Cleanup(envconfig.LoadConfig)
	t.Setenv("HDRPARSE_LENIENT", "")
	require.NoError(t, os.Unsetenv("HDRPARSE_LENIENT"))

	dir := t.TempDir()
	require.NoError(t, loadDotEnv(filepath.Join(dir, ".env")))
	assert.False(t, envconfig.Lenient)

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("HDRPARSE_LENIENT=true\n"), 0o644))
	require.NoError(t, loadDotEnv(path))
	assert.True(t, envconfig.Lenient)
}

func TestLoadDotEnvHome(t *testing.T) {
	t.Cleanup(envconfig.LoadConfig)
	t.Setenv("HDRPARSE_FORMAT", "")
	require.NoError(t, os.Unsetenv("HDRPARSE_FORMAT"))

	t.Setenv("HOME", "")
	t.Setenv("USERPROFILE", "")
	t.Setenv("home", "")
	assert.NoError(t, LoadDotEnv())

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("home", home)
	require.NoError(t, os.Mkdir(filepath.Join(home, ".hdrparse"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".hdrparse", ".env"), []byte("HDRPARSE_FORMAT=json\n"), 0o644))
	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "json", envconfig.Format)
}
