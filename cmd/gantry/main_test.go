package main

import (
	"reflect"
	"testing"
)

func TestSweepEngineOptions(t *testing.T) {
	cases := []struct {
		name string
		args []string
		opts []string
		rest []string
	}{
		{
			name: "none",
			args: []string{"run", "script.js"},
			rest: []string{"run", "script.js"},
		},
		{
			name: "interleaved",
			args: []string{"-E--dev", "run", "-E--server", "script.js"},
			opts: []string{"--dev", "--server"},
			rest: []string{"run", "script.js"},
		},
		{
			name: "order preserved",
			args: []string{"-Eb", "-Ea"},
			opts: []string{"b", "a"},
		},
		{
			name: "bare -E left for the parser",
			args: []string{"-E", "run"},
			rest: []string{"-E", "run"},
		},
		{
			name: "prefix only at argument start",
			args: []string{"run", "file-E.js"},
			rest: []string{"run", "file-E.js"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts, rest := sweepEngineOptions(c.args)
			if !reflect.DeepEqual(opts, c.opts) {
				t.Errorf("options = %v, want %v", opts, c.opts)
			}
			if !reflect.DeepEqual(rest, c.rest) {
				t.Errorf("rest = %v, want %v", rest, c.rest)
			}
		})
	}
}
