package envconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Setenv("HDRPARSE_DEBUG", "")
	LoadConfig()
	require.False(t, Debug)
	t.Setenv("HDRPARSE_DEBUG", "false")
	LoadConfig()
	require.False(t, Debug)
	t.Setenv("HDRPARSE_DEBUG", "1")
	LoadConfig()
	require.True(t, Debug)
	t.Setenv("HDRPARSE_LENIENT", "true")
	LoadConfig()
	require.True(t, Lenient)
	t.Setenv("HDRPARSE_MAX_BODY", "-5")
	LoadConfig()
	require.EqualValues(t, defaultMaxBodySize, MaxBodySize)
	t.Setenv("HDRPARSE_MAX_BODY", "1024")
	LoadConfig()
	require.EqualValues(t, 1024, MaxBodySize)
}

func TestOrigins(t *testing.T) {
	t.Setenv("HDRPARSE_ORIGINS", "http://10.0.0.1,app://*")
	LoadConfig()
	require.Len(t, AllowOrigins, 2+4*len(defaultAllowOrigins))
	assert.Equal(t, "http://10.0.0.1", AllowOrigins[0])
	assert.Contains(t, AllowOrigins, "http://localhost:*")
}

func TestHost(t *testing.T) {
	cases := map[string]struct {
		value  string
		expect string
	}{
		"empty":               {"", "http://127.0.0.1:7411"},
		"only address":        {"1.2.3.4", "http://1.2.3.4:7411"},
		"only port":           {":1234", "http://:1234"},
		"address and port":    {"1.2.3.4:1234", "http://1.2.3.4:1234"},
		"scheme http":         {"http://1.2.3.4", "http://1.2.3.4:80"},
		"scheme https":        {"https://example.com", "https://example.com:443"},
		"scheme and port":     {"https://example.com:1234", "https://example.com:1234"},
		"hostname":            {"example.com", "http://example.com:7411"},
		"trailing slash":      {"example.com/", "http://example.com:7411"},
		"too large port":      {":66000", "http://:7411"},
		"ipv6 localhost":      {"[::1]", "http://[::1]:7411"},
		"ipv6 no brackets":    {"::1", "http://[::1]:7411"},
		"ipv6 and port":       {"[::1]:1337", "http://[::1]:1337"},
		"extra space":         {" 1.2.3.4 ", "http://1.2.3.4:7411"},
		"extra quotes":        {"\"1.2.3.4\"", "http://1.2.3.4:7411"},
		"extra single quotes": {"'1.2.3.4'", "http://1.2.3.4:7411"},
	}

	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("HDRPARSE_HOST", tt.value)
			assert.Equal(t, tt.expect, Host().String())
		})
	}
}

func TestParseDefines(t *testing.T) {
	cases := []struct {
		in   string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"__cplusplus", map[string]string{"__cplusplus": ""}},
		{"A=1,B", map[string]string{"A": "1", "B": ""}},
		{" A=1  B=two ,C= ", map[string]string{"A": "1", "B": "two", "C": ""}},
		{"=1,D", map[string]string{"D": ""}},
	}

	for _, tt := range cases {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDefines(tt.in))
		})
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
host = "0.0.0.0:9000"
origins = ["http://example.com"]

[parse]
defines = ["__cplusplus", "WIDTH=64"]
lenient = true
format = "json"
`), 0o644))

	t.Cleanup(func() { require.NoError(t, SetConfigFile("")) })
	require.NoError(t, SetConfigFile(path))

	assert.Equal(t, "http://0.0.0.0:9000", Host().String())
	assert.True(t, Lenient)
	assert.Equal(t, "json", Format)
	assert.Equal(t, map[string]string{"__cplusplus": "", "WIDTH": "64"}, Defines)
	assert.Equal(t, "http://example.com", AllowOrigins[0])

	// the environment wins over the file
	t.Setenv("HDRPARSE_FORMAT", "cbor")
	LoadConfig()
	assert.Equal(t, "cbor", Format)
}

func TestConfigFileErrors(t *testing.T) {
	t.Cleanup(func() { require.NoError(t, SetConfigFile("")) })

	err := SetConfigFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[parse\nformat = "), 0o644))
	require.NoError(t, SetConfigFile(path))
	assert.Equal(t, "", GetConfigValue("HDRPARSE_FORMAT"))
}

func TestAsMap(t *testing.T) {
	m := AsMap()
	for _, key := range []string{
		"HDRPARSE_DEBUG",
		"HDRPARSE_DEFINES",
		"HDRPARSE_FORMAT",
		"HDRPARSE_HOST",
		"HDRPARSE_LENIENT",
		"HDRPARSE_MAX_BODY",
		"HDRPARSE_ORIGINS",
	} {
		require.Contains(t, m, key)
		assert.Equal(t, key, m[key].Name)
		assert.NotEmpty(t, m[key].Description)
	}
	assert.Len(t, Values(), len(m))
}

func TestGenerateExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(GenerateExampleConfig()), 0o644))

	t.Cleanup(func() { require.NoError(t, SetConfigFile("")) })
	require.NoError(t, SetConfigFile(path))
	assert.Equal(t, map[string]string{"__cplusplus": ""}, Defines)
	assert.Equal(t, "yaml", Format)
}
