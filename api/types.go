package api

import (
	"fmt"

	"github.com/hipabi/hdrparse/abi"
)

// StatusError is an error with an HTTP status code and message,
// it is parsed on the client-side and not returned from the API
type StatusError struct {
	StatusCode   int    // e.g. 200
	Status       string // e.g. "200 OK"
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the hdrparse server logs for details"
	}
}

// ParseRequest is the request passed to [Client.Parse].
type ParseRequest struct {
	// Name is reported in positions and errors, usually the file name.
	Name string `json:"name"`

	// Source is the header text.
	Source string `json:"source"`

	// Format of the returned document: yaml (default) or json.
	Format string `json:"format,omitempty"`

	// Defines are predefined macros. An empty value defines the macro as 1.
	Defines map[string]string `json:"defines,omitempty"`

	// Lenient skips declarations that fail to parse.
	Lenient bool `json:"lenient,omitempty"`
}

// ParseResponse is the response returned from [Client.Parse].
type ParseResponse struct {
	Name        string   `json:"name"`
	Format      string   `json:"format"`
	Document    string   `json:"document"`
	Includes    []string `json:"includes,omitempty"`
	Fingerprint string   `json:"fingerprint"`
}

// CheckRequest compares the declarations of two headers.
type CheckRequest struct {
	Old ParseRequest `json:"old"`
	New ParseRequest `json:"new"`
}

type CheckResponse struct {
	Compatible     bool         `json:"compatible"`
	Changes        []abi.Change `json:"changes"`
	OldFingerprint string       `json:"old_fingerprint"`
	NewFingerprint string       `json:"new_fingerprint"`
}

type VersionResponse struct {
	Version string `json:"version"`
}
