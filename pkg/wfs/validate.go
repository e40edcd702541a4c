package wfs

import (
	"context"
	"fmt"
	"strings"
)

// Validation holds the three endpoint health flags persisted per stream.
type Validation struct {
	URLSyntaxValid   bool   `json:"url_syntax_valid"`
	ServerReachable  bool   `json:"server_reachable"`
	XMLResponseValid bool   `json:"xml_response_valid"`
	Notes            string `json:"notes,omitempty"`
}

// ValidationFrom derives flags from a finished FetchResult. A failed syntax
// check leaves all three flags false.
func ValidationFrom(res FetchResult) Validation {
	if res.Reason == ReasonInvalidURL {
		return Validation{Notes: res.Error}
	}
	v := Validation{
		URLSyntaxValid:   true,
		ServerReachable:  res.Reachable(),
		XMLResponseValid: res.Success,
	}

	if res.Success {
		v.Notes = "capabilities via version " + versionLabel(res.Version)
		if res.Partial {
			v.Notes += " (truncated transfer)"
		}
		return v
	}

	parts := make([]string, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", versionLabel(a.Version), a.Error))
	}
	v.Notes = strings.Join(parts, "; ")
	return v
}

// Validate fetches base once through f and derives the validation flags
// from that fetch. The FetchResult is returned so callers can go on and
// parse the body without a second request.
func Validate(ctx context.Context, f *Fetcher, base string) (Validation, FetchResult) {
	res := f.FetchCapabilities(ctx, base)
	return ValidationFrom(res), res
}
