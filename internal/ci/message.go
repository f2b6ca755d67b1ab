package ci

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultDeployMessage is used when no commit message is available.
const DefaultDeployMessage = "Update"

// MaxMessageLength is the number of characters of the commit message kept
// in the deploy message.
const MaxMessageLength = 150

// unsafeShellChar matches any character that requires quoting.
var unsafeShellChar = regexp.MustCompile(`[^A-Za-z0-9_/:=-]`)

// messageCleaner replaces double quotes and removes characters that break
// single-line release messages.
var messageCleaner = strings.NewReplacer(
	`"`, `'`,
	"`", "",
	"\n", "",
	"\r", "",
	"\t", "",
)

// SanitizeMessage turns a raw commit message into a deploy message: double
// quotes become single quotes, backticks and line breaks are removed, the
// result is cut to MaxMessageLength characters and shell-escaped.
//
// A message that is empty before or after cleaning yields
// DefaultDeployMessage, unescaped. SanitizeMessage never
// fails; any unexpected panic also yields DefaultDeployMessage.
func SanitizeMessage(raw string) (msg string) {
	if raw == "" {
		return DefaultDeployMessage
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("error", fmt.Sprint(r)).
				Msg("Threw an error when trying to create deploy message, falling back to default message")
			msg = DefaultDeployMessage
		}
	}()

	cleaned := messageCleaner.Replace(raw)
	if runes := []rune(cleaned); len(runes) > MaxMessageLength {
		cleaned = string(runes[:MaxMessageLength])
	}
	if cleaned == "" {
		return DefaultDeployMessage
	}
	return ShellEscape(cleaned)
}

// ShellEscape quotes each argument for a POSIX shell and joins them with
// spaces. Arguments made only of [A-Za-z0-9_/:=-] are left as is; others
// are wrapped in single quotes with embedded single quotes written as '\''.
func ShellEscape(args ...string) string {
	out := make([]string, 0, len(args))
	for _, s := range args {
		if unsafeShellChar.MatchString(s) {
			s = "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
			// Drop the empty '' produced by a leading single quote, and the
			// one left between two escaped quotes.
			s = strings.TrimPrefix(s, "''")
			s = strings.ReplaceAll(s, `\'''`, `\'`)
		}
		out = append(out, s)
	}
	return strings.Join(out, " ")
}
