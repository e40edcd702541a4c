package wfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationFrom(t *testing.T) {
	tests := []struct {
		name      string
		res       FetchResult
		want      Validation
		notesPart string
	}{
		{
			name: "InvalidURL",
			res:  FetchResult{Reason: ReasonInvalidURL, Error: "missing host"},
			want: Validation{Notes: "missing host"},
		},
		{
			name: "Unreachable",
			res: FetchResult{Reason: ReasonNetwork, Attempts: []Attempt{
				{Version: "2.0.0", Reason: ReasonNetwork, Error: "connection refused"},
				{Version: "", Reason: ReasonNetwork, Error: "connection refused"},
			}},
			want:      Validation{URLSyntaxValid: true},
			notesPart: "unspecified: connection refused",
		},
		{
			name: "ReachableButNotCapabilities",
			res: FetchResult{Reason: ReasonNotCapabilities, Attempts: []Attempt{
				{Version: "2.0.0", StatusCode: 200, Reason: ReasonNotCapabilities, Error: "no WFS_Capabilities root"},
			}},
			want:      Validation{URLSyntaxValid: true, ServerReachable: true},
			notesPart: "2.0.0: no WFS_Capabilities root",
		},
		{
			name: "Valid",
			res: FetchResult{Success: true, Version: "1.1.0", Attempts: []Attempt{
				{Version: "2.0.0", StatusCode: 400},
				{Version: "1.1.0", StatusCode: 200},
			}},
			want:      Validation{URLSyntaxValid: true, ServerReachable: true, XMLResponseValid: true},
			notesPart: "capabilities via version 1.1.0",
		},
		{
			name: "ValidButTruncated",
			res: FetchResult{Success: true, Partial: true, Attempts: []Attempt{
				{StatusCode: 200},
			}},
			want:      Validation{URLSyntaxValid: true, ServerReachable: true, XMLResponseValid: true},
			notesPart: "(truncated transfer)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidationFrom(tt.res)
			assert.Equal(t, tt.want.URLSyntaxValid, got.URLSyntaxValid)
			assert.Equal(t, tt.want.ServerReachable, got.ServerReachable)
			assert.Equal(t, tt.want.XMLResponseValid, got.XMLResponseValid)
			if tt.notesPart != "" {
				assert.Contains(t, got.Notes, tt.notesPart)
			} else {
				assert.Equal(t, tt.want.Notes, got.Notes)
			}
		})
	}
}
