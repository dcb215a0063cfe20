package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Profile
		wantErr bool
	}{
		{name: "cpu", input: "cpu", want: ProfileCPU},
		{name: "nvidia gpu", input: "gpu-nvidia", want: ProfileGPUNvidia},
		{name: "amd gpu", input: "gpu-amd", want: ProfileGPUAMD},
		{name: "none", input: "none", want: ProfileNone},
		{name: "empty defaults to cpu", input: "", want: ProfileCPU},
		{name: "unknown value", input: "tpu", wantErr: true},
		{name: "case sensitive", input: "CPU", wantErr: true},
		{name: "whitespace not trimmed", input: " cpu", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfile(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownProfile)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProfile_Flagged(t *testing.T) {
	assert.True(t, ProfileCPU.Flagged())
	assert.True(t, ProfileGPUNvidia.Flagged())
	assert.True(t, ProfileGPUAMD.Flagged())
	assert.False(t, ProfileNone.Flagged())
	assert.False(t, Profile("").Flagged())
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Environment
		wantErr bool
	}{
		{name: "private", input: "private", want: EnvironmentPrivate},
		{name: "public", input: "public", want: EnvironmentPublic},
		{name: "empty defaults to private", input: "", want: EnvironmentPrivate},
		{name: "unknown value", input: "staging", wantErr: true},
		{name: "case sensitive", input: "Public", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEnvironment(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownEnvironment)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
