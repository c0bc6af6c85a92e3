package core

// OptionOutcome is the tagged result of classifying one boot-time engine
// option. Classification never aborts the bootstrap; the caller maps
// non-Applied outcomes to warnings and keeps going.
type OptionOutcome int

const (
	// OptionApplied means the option was recognized and its effect applied
	// to the live engine configuration.
	OptionApplied OptionOutcome = iota
	// OptionUnrecognized means the option is not part of the boot grammar.
	OptionUnrecognized
	// OptionNonFunctional means the option is a known engine flag that
	// cannot be honored this late in boot.
	OptionNonFunctional
)

// String returns the outcome name used in diagnostics.
func (o OptionOutcome) String() string {
	switch o {
	case OptionApplied:
		return "applied"
	case OptionNonFunctional:
		return "non-functional"
	default:
		return "unrecognized"
	}
}
