package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		branches int
		branch   int
		verdict  verdict
		wantErr  bool
	}{
		{name: "bare number", raw: "2", branches: 3, branch: 1, verdict: verdictBranch},
		{name: "number with period", raw: "1.", branches: 2, branch: 0, verdict: verdictBranch},
		{name: "phrase ending in number", raw: "branch 3", branches: 3, branch: 2, verdict: verdictBranch},
		{name: "off-topic", raw: "off-topic", branches: 2, verdict: verdictOffTopic},
		{name: "off topic with space", raw: "Off Topic", branches: 2, verdict: verdictOffTopic},
		{name: "uncertain", raw: " Uncertain. ", branches: 2, verdict: verdictUncertain},
		{name: "unclear synonym", raw: "unclear", branches: 2, verdict: verdictUncertain},
		{name: "out of range", raw: "7", branches: 2, wantErr: true},
		{name: "zero", raw: "0", branches: 2, wantErr: true},
		{name: "garbage", raw: "the patient seems fine", branches: 2, wantErr: true},
		{name: "empty", raw: "", branches: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			branch, v, err := parseVerdict(tt.raw, tt.branches)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrCollaborator)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, v)
			if tt.verdict == verdictBranch {
				assert.Equal(t, tt.branch, branch)
			}
		})
	}
}
