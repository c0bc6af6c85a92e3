//go:build !v8

package gantry

import (
	"github.com/gantrydata/gantry/internal/core"
	"github.com/gantrydata/gantry/internal/quickjs"
)

func newBackend(cfg core.EngineConfig) (core.ScriptRuntime, error) {
	return quickjs.New(cfg)
}
