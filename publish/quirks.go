package publish

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// Typing quirks are per-account substitution rules applied to everything
// the account posts. Structured tokens must survive the rewrite verbatim:
// emoji shortcodes, mentions, URLs and bracketed link text are masked out
// before the rules run and restored afterwards.

// maskRune marks a protected token in the working text. U+FFFC (OBJECT
// REPLACEMENT CHARACTER) does not occur in ordinary input.
const maskRune = '￼'

// protectedPattern matches, left to right and non-overlapping: emoji
// shortcodes (:word:), mentions (@handle), URLs (scheme://...) and
// bracketed link text ([...]).
var protectedPattern = regexp.MustCompile(`:\w+:|@[\w.-]+|[a-zA-Z][a-zA-Z0-9+.-]*://\S+|\[[^\]]*\]`)

// QuirkRule is one precompiled substitution.
type QuirkRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// CompileQuirks precompiles an account's rule lists into an ordered rule
// set. A malformed configuration (mismatched list lengths, or a pattern
// that does not compile) yields no rules at all, so the text passes
// through untouched.
func CompileQuirks(patterns, replacements []string) []QuirkRule {
	if len(patterns) == 0 || len(patterns) != len(replacements) {
		if len(patterns) != len(replacements) {
			log.Warnf("quirks: %d patterns vs %d replacements, skipping transformation", len(patterns), len(replacements))
		}
		return nil
	}

	rules := make([]QuirkRule, 0, len(patterns))
	for i, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Warnf("quirks: pattern %q does not compile, skipping transformation: %v", pattern, err)
			return nil
		}
		rules = append(rules, QuirkRule{Pattern: re, Replacement: replacements[i]})
	}
	return rules
}

// ApplyQuirks rewrites text with the given rules while preserving
// protected tokens. With no rules the input is returned unchanged, byte
// for byte.
func ApplyQuirks(text string, rules []QuirkRule) string {
	if len(rules) == 0 {
		return text
	}

	// Mask protected tokens exactly once; rules never see them and
	// anything token-like a rule produces is not re-scanned.
	held := protectedPattern.FindAllString(text, -1)
	masked := protectedPattern.ReplaceAllString(text, string(maskRune))

	for _, rule := range rules {
		masked = rule.Pattern.ReplaceAllString(masked, rule.Replacement)
	}

	if len(held) == 0 {
		return masked
	}

	// Restore the k-th placeholder occurrence to the k-th held token.
	// A rule may have deleted placeholders (the trailing tokens stay
	// dropped) or introduced extra ones (left as they are).
	var b strings.Builder
	b.Grow(len(masked))
	k := 0
	for _, ch := range masked {
		if ch == maskRune && k < len(held) {
			b.WriteString(held[k])
			k++
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
