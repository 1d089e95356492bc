package quiz

import (
	"regexp"
	"strings"
)

// VerbTypePrefix opens the "which verb type is X" questions whose key is the verb itself.
const VerbTypePrefix = "Minkä tyyppinen verbi on "

var firstParenthesized = regexp.MustCompile(`\(([^)]+)`)

// ExtractLexicalKey derives the word a prompt is about. For verb-type
// questions it is the text after VerbTypePrefix up to the first "(";
// otherwise the contents of the first parenthesized group. Empty when neither applies.
func ExtractLexicalKey(prompt string) string {
	if rest, ok := strings.CutPrefix(prompt, VerbTypePrefix); ok {
		rest, _, _ = strings.Cut(rest, "(")
		return strings.TrimRight(strings.TrimSpace(rest), "?.,! \t")
	}
	m := firstParenthesized.FindStringSubmatch(prompt)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
