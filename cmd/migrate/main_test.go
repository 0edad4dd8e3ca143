package main

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSteps(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{"flag form", []string{"-n", "2"}, 2, false},
		{"negative flag", []string{"-n", "-1"}, -1, false},
		{"positional", []string{"3"}, 3, false},
		{"missing", nil, 0, true},
		{"not a number", []string{"abc"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSteps(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListFrom_Embedded(t *testing.T) {
	embedded := fstest.MapFS{
		"20260101000000_a.up.sql":   {Data: []byte("SELECT 1;")},
		"20260101000000_a.down.sql": {Data: []byte("SELECT 1;")},
	}
	names, err := listFrom("", embedded)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101000000_a"}, names)
}
