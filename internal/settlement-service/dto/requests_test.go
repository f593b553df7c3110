package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunRequestValidate(t *testing.T) {
	tooMany := make([]string, 101)
	for i := range tooMany {
		tooMany[i] = "R"
	}

	tests := []struct {
		name    string
		req     RunRequest
		wantErr bool
	}{
		{"empty means all rounds", RunRequest{}, false},
		{"valid rounds", RunRequest{Rounds: []string{"R10", "R11"}, Limit: 10}, false},
		{"blank round", RunRequest{Rounds: []string{"R10", ""}}, true},
		{"round too long", RunRequest{Rounds: []string{strings.Repeat("x", 65)}}, true},
		{"too many rounds", RunRequest{Rounds: tooMany}, true},
		{"negative limit", RunRequest{Limit: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
