package envconfig

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

var (
	// Set via HDRPARSE_ORIGINS in the environment
	AllowOrigins []string
	// Set via HDRPARSE_DEBUG in the environment
	Debug bool
	// Set via HDRPARSE_DEFINES in the environment
	Defines map[string]string
	// Set via HDRPARSE_FORMAT in the environment
	Format string
	// Set via HDRPARSE_LENIENT in the environment
	Lenient bool
	// Set via HDRPARSE_MAX_BODY in the environment
	MaxBodySize int64
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"HDRPARSE_DEBUG":    {"HDRPARSE_DEBUG", Debug, "Show additional debug information (e.g. HDRPARSE_DEBUG=1)"},
		"HDRPARSE_DEFINES":  {"HDRPARSE_DEFINES", Defines, "Comma separated macros to predefine (e.g. __cplusplus,WIDTH=64)"},
		"HDRPARSE_FORMAT":   {"HDRPARSE_FORMAT", Format, "Default output format: yaml, json or cbor (default \"yaml\")"},
		"HDRPARSE_HOST":     {"HDRPARSE_HOST", Host().Host, "IP Address for the hdrparse server (default 127.0.0.1:7411)"},
		"HDRPARSE_LENIENT":  {"HDRPARSE_LENIENT", Lenient, "Skip declarations that fail to parse"},
		"HDRPARSE_MAX_BODY": {"HDRPARSE_MAX_BODY", MaxBodySize, "Maximum request body size in bytes (default 8388608)"},
		"HDRPARSE_ORIGINS":  {"HDRPARSE_ORIGINS", AllowOrigins, "A comma separated list of allowed origins"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

var defaultAllowOrigins = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

const defaultMaxBodySize = 8 << 20

// Clean quotes and spaces from the value. Unset variables fall back to the
// config file.
func clean(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.Trim(v, "\"' ")
	}
	return strings.Trim(GetConfigValue(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug = false
	if debug := clean("HDRPARSE_DEBUG"); debug != "" {
		d, err := strconv.ParseBool(debug)
		if err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	Lenient = false
	if lenient := clean("HDRPARSE_LENIENT"); lenient != "" {
		l, err := strconv.ParseBool(lenient)
		if err != nil {
			slog.Error("invalid setting, ignoring", "HDRPARSE_LENIENT", lenient, "error", err)
		} else {
			Lenient = l
		}
	}

	Format = clean("HDRPARSE_FORMAT")
	if Format == "" {
		Format = "yaml"
	}

	Defines = ParseDefines(clean("HDRPARSE_DEFINES"))

	MaxBodySize = defaultMaxBodySize
	if limit := clean("HDRPARSE_MAX_BODY"); limit != "" {
		n, err := strconv.ParseInt(limit, 10, 64)
		if err != nil || n <= 0 {
			slog.Error("invalid setting must be greater than zero", "HDRPARSE_MAX_BODY", limit, "error", err)
		} else {
			MaxBodySize = n
		}
	}

	AllowOrigins = nil
	if origins := clean("HDRPARSE_ORIGINS"); origins != "" {
		AllowOrigins = strings.Split(origins, ",")
	}
	for _, allowOrigin := range defaultAllowOrigins {
		AllowOrigins = append(AllowOrigins,
			fmt.Sprintf("http://%s", allowOrigin),
			fmt.Sprintf("https://%s", allowOrigin),
			fmt.Sprintf("http://%s:*", allowOrigin),
			fmt.Sprintf("https://%s:*", allowOrigin),
		)
	}
}

// Host returns the scheme and host of the hdrparse server. Set via
// HDRPARSE_HOST; the default is http://127.0.0.1:7411.
func Host() *url.URL {
	defaultPort := "7411"

	s := clean("HDRPARSE_HOST")
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = "127.0.0.1", defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
}

// ParseDefines reads macro definitions of the form NAME or NAME=VALUE
// separated by commas or spaces. A bare NAME is defined as 1.
func ParseDefines(s string) map[string]string {
	defines := make(map[string]string)
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		name, value, _ := strings.Cut(f, "=")
		if name == "" {
			slog.Warn("ignoring define without a name", "define", f)
			continue
		}
		defines[name] = value
	}
	return defines
}
