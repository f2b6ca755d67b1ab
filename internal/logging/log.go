// Package logging configures the global zerolog logger used by firebase-ci.
//
// Output always goes to a human-readable console writer because the tool
// runs inside CI build logs, where colorized single-line messages are
// easier to scan than JSON.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	Setup(os.Stderr, false, true)
}

// Setup points the global logger at w. Debug enables debug-level messages;
// noColor disables ANSI colors (also honored through NO_COLOR).
func Setup(w io.Writer, debug bool, noColor bool) {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      noColor,
		PartsExclude: []string{zerolog.TimestampFieldName},
	})
	SetDebug(debug)
}

// SetDebug switches the global level between debug and info.
func SetDebug(debug bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
