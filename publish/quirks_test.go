package publish

import (
	"strings"
	"testing"
)

func rules(t *testing.T, pairs ...string) []QuirkRule {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatal("pairs must come in twos")
	}
	var patterns, replacements []string
	for i := 0; i < len(pairs); i += 2 {
		patterns = append(patterns, pairs[i])
		replacements = append(replacements, pairs[i+1])
	}
	return CompileQuirks(patterns, replacements)
}

func TestApplyQuirksNoRules(t *testing.T) {
	text := "hello @bob check https://example.com :smile: [a link]"
	result := ApplyQuirks(text, nil)
	if result != text {
		t.Errorf("No rules should leave text unchanged, got '%s'", result)
	}
}

func TestApplyQuirksSimpleSubstitution(t *testing.T) {
	result := ApplyQuirks("so very cool", rules(t, "o", "0"))
	if result != "s0 very c00l" {
		t.Errorf("Expected 's0 very c00l', got '%s'", result)
	}
}

func TestApplyQuirksRulesInOrder(t *testing.T) {
	// The second rule sees the output of the first.
	result := ApplyQuirks("ab", rules(t, "a", "b", "bb", "x"))
	if result != "x" {
		t.Errorf("Expected 'x', got '%s'", result)
	}
}

func TestApplyQuirksProtectsTokens(t *testing.T) {
	text := "ok @bob look https://example.com/foo and :smile: in [some text]"
	result := ApplyQuirks(text, rules(t, "o", "0"))

	for _, token := range []string{"@bob", "https://example.com/foo", ":smile:", "[some text]"} {
		if !strings.Contains(result, token) {
			t.Errorf("Protected token '%s' was altered, got '%s'", token, result)
		}
	}
	if !strings.Contains(result, "0k") {
		t.Errorf("Unprotected text should be rewritten, got '%s'", result)
	}
	if strings.ContainsRune(result, maskRune) {
		t.Errorf("Placeholder leaked into output: '%s'", result)
	}
}

func TestApplyQuirksTokenOrderPreserved(t *testing.T) {
	text := "@alice then @bob then @carol"
	result := ApplyQuirks(text, rules(t, "then", "->"))
	if result != "@alice -> @bob -> @carol" {
		t.Errorf("Expected mentions restored in order, got '%s'", result)
	}
}

func TestCompileQuirksMismatchedLengths(t *testing.T) {
	if CompileQuirks([]string{"a", "b"}, []string{"x"}) != nil {
		t.Error("Mismatched lengths should compile to no rules")
	}

	text := "abab"
	result := ApplyQuirks(text, CompileQuirks([]string{"a", "b"}, []string{"x"}))
	if result != text {
		t.Errorf("Mismatched config should pass text through, got '%s'", result)
	}
}

func TestCompileQuirksInvalidPattern(t *testing.T) {
	if CompileQuirks([]string{"["}, []string{"x"}) != nil {
		t.Error("A pattern that does not compile should disable all rules")
	}
}

func TestApplyQuirksRuleDeletesPlaceholder(t *testing.T) {
	// The rule wipes the whole text including the placeholder; the held
	// token is not restored and no placeholder leaks.
	result := ApplyQuirks("pre @bob post", rules(t, ".+", "gone"))
	if result != "gone" {
		t.Errorf("Expected 'gone', got '%s'", result)
	}
}

func TestApplyQuirksRuleIntroducesPlaceholder(t *testing.T) {
	// A rule inserting the mask rune shifts the k-th mapping; surplus
	// placeholders beyond the held tokens stay as they are, nothing is
	// re-scanned.
	result := ApplyQuirks("x @bob", rules(t, "x", string(maskRune)))
	if !strings.HasPrefix(result, "@bob") {
		t.Errorf("First placeholder occurrence should take the first held token, got '%s'", result)
	}
	if !strings.ContainsRune(result, maskRune) {
		t.Errorf("Surplus placeholder should remain, got '%s'", result)
	}
}

func TestApplyQuirksRuleProducesTokenLikeText(t *testing.T) {
	// Token-like output of a rule is not masked after the fact.
	result := ApplyQuirks("write at sign", rules(t, "at sign", "@carol"))
	if result != "write @carol" {
		t.Errorf("Expected 'write @carol', got '%s'", result)
	}
}

func TestApplyQuirksEmptyText(t *testing.T) {
	if result := ApplyQuirks("", rules(t, "a", "b")); result != "" {
		t.Errorf("Empty text should stay empty, got '%s'", result)
	}
}
