package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	allowed := []string{"-c", "-config"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "short flag with separate value",
			args: []string{"-c", "conf.json", "-t", "token"},
			want: []string{"-c", "conf.json"},
		},
		{
			name: "long flag with equals",
			args: []string{"-config=alt.json", "-t", "token"},
			want: []string{"-config=alt.json"},
		},
		{
			name: "both forms present, order preserved",
			args: []string{"-config=first.json", "-c", "second.json", "-x", "1"},
			want: []string{"-config=first.json", "-c", "second.json"},
		},
		{
			name: "unknown flags ignored",
			args: []string{"-x", "1", "-y=2", "positional"},
			want: []string{},
		},
		{
			name: "flag without value at end is kept",
			args: []string{"-c"},
			want: []string{"-c"},
		},
		{
			name: "flag followed by another flag takes no value",
			args: []string{"-c", "-t", "token"},
			want: []string{"-c"},
		},
		{
			name: "negative number is a value",
			args: []string{"-c", "-100123", "-t", "token"},
			want: []string{"-c", "-100123"},
		},
		{
			name: "nil args",
			args: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, allowed))
		})
	}
}

func TestStringFlag(t *testing.T) {
	assert.Equal(t, "conf.json", StringFlag([]string{"-t", "x", "-c", "conf.json"}, "c", "config"))
	assert.Equal(t, "alt.json", StringFlag([]string{"-config=alt.json"}, "c", "config"))
	assert.Equal(t, "relay.env", StringFlag([]string{"-env-file", "relay.env", "-c", "x.json"}, "env-file"))
	assert.Equal(t, "", StringFlag([]string{"-t", "token"}, "c", "config"))
	assert.Equal(t, "", StringFlag([]string{"-c"}, "c", "config"))
}
