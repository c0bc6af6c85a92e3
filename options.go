package gantry

import "github.com/gantrydata/gantry/internal/core"

// classifyBootOption classifies one boot-time engine option and, only when
// the outcome is OptionApplied, applies its effect to the live engine
// configuration through the runtime's own setters.
//
// The grammar is deliberately tiny: characters after the leading '-' are
// inspected one at a time, and on the first '-' the whole token is compared
// against the known long-form literals. Multi-flag concatenation like "-ab"
// is not supported; any such token is wholesale unrecognized. A bare "-"
// falls through the scan loop and is accepted silently.
func classifyBootOption(option string, rt core.ScriptRuntime) core.OptionOutcome {
	if len(option) == 0 || option[0] != '-' {
		return core.OptionUnrecognized
	}

	for index := 1; index < len(option); index++ {
		switch option[index] {
		case '-':
			if option == "--dev" {
				// Not all of what the engine's native developer mode does,
				// but the most that can still be configured this late in
				// boot: no optimizing compiler, no optimized JIT dispatch.
				rt.DisableOptimizedDispatch()
				rt.SetCompileMode(core.CompileOff)
				return core.OptionApplied
			}
			if option == "--client" || option == "--server" {
				// Known engine flags; the host's execution mode is fixed
				// before this code runs.
				return core.OptionNonFunctional
			}
			return core.OptionUnrecognized
		default:
			return core.OptionUnrecognized
		}
	}
	return core.OptionApplied
}
