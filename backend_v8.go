//go:build v8

package gantry

import (
	"github.com/gantrydata/gantry/internal/core"
	"github.com/gantrydata/gantry/internal/v8engine"
)

func newBackend(cfg core.EngineConfig) (core.ScriptRuntime, error) {
	return v8engine.New(cfg)
}
