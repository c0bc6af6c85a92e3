package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func main() {
	// .env loading is a CLI convenience; the library only ever reads the
	// process environment.
	_ = godotenv.Load()

	engineOptions, rest := sweepEngineOptions(os.Args[1:])
	Execute(engineOptions, rest)
}

// sweepEngineOptions collects -E<token> arguments from anywhere on the
// command line, in order, before cobra parsing. "-E--dev" yields the boot
// option "--dev". A bare "-E" is left for cobra to reject.
func sweepEngineOptions(args []string) (engineOptions, rest []string) {
	for _, arg := range args {
		if strings.HasPrefix(arg, "-E") && len(arg) > 2 {
			engineOptions = append(engineOptions, arg[2:])
			continue
		}
		rest = append(rest, arg)
	}
	return engineOptions, rest
}
