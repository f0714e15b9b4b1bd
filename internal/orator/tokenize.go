package orator

import (
	"regexp"
	"strings"

	"github.com/buildkite/shellwords"
)

var (
	mentionToken  = regexp.MustCompile(`^<@[!&]?(\d+)>$`)
	mentionPrefix = regexp.MustCompile(`^<@!?(\d+)>`)

	// literal keeps apostrophes and backslashes as typed; only double quotes group.
	literal = strings.NewReplacer(`\`, `\\`, `'`, `\'`)
)

// Tokenize splits content on whitespace, keeping double-quoted substrings together. An
// explicit "" is an empty token. Unbalanced quotes fall back to plain whitespace
// splitting. User and role mentions are reduced to their IDs.
func Tokenize(content string) []string {
	tokens, err := shellwords.SplitPosix(literal.Replace(content))
	if err != nil {
		tokens = strings.Fields(content)
	}
	out := tokens[:0]
	for _, t := range tokens {
		if m := mentionToken.FindStringSubmatch(t); m != nil {
			t = m[1]
		}
		out = append(out, t)
	}
	return out
}
