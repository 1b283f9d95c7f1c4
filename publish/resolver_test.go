package publish

import (
	"testing"

	"github.com/trollianspace/mastodon/domain"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestResolveFieldsSpoilerBecomesText(t *testing.T) {
	owner := &domain.Account{DefaultVisibility: domain.VisibilityPublic}
	sub := &domain.Submission{Text: "   ", SpoilerText: "cw only"}

	fields := ResolveFields(sub, owner, TagTable{}, nil)
	if fields.Text != "cw only" {
		t.Errorf("Expected spoiler as body text, got '%s'", fields.Text)
	}
	if fields.SpoilerText != "cw only" {
		t.Errorf("Spoiler text should be kept, got '%s'", fields.SpoilerText)
	}
}

func TestResolveFieldsVisibilityDefaults(t *testing.T) {
	owner := &domain.Account{DefaultVisibility: domain.VisibilityUnlisted}

	fields := ResolveFields(&domain.Submission{Text: "hi"}, owner, TagTable{}, nil)
	if fields.Visibility != domain.VisibilityUnlisted {
		t.Errorf("Expected account default visibility, got '%s'", fields.Visibility)
	}

	fields = ResolveFields(&domain.Submission{Text: "hi", Visibility: domain.VisibilityDirect}, owner, TagTable{}, nil)
	if fields.Visibility != domain.VisibilityDirect {
		t.Errorf("Explicit visibility should win, got '%s'", fields.Visibility)
	}
}

func TestResolveFieldsSilencedDowngrade(t *testing.T) {
	owner := &domain.Account{DefaultVisibility: domain.VisibilityPublic, Silenced: true}

	fields := ResolveFields(&domain.Submission{Text: "hi", Visibility: domain.VisibilityPublic}, owner, TagTable{}, nil)
	if fields.Visibility != domain.VisibilityUnlisted {
		t.Errorf("Silenced owner should downgrade public to unlisted, got '%s'", fields.Visibility)
	}

	// Only public is downgraded.
	for _, vis := range []domain.Visibility{domain.VisibilityUnlisted, domain.VisibilityFollowers, domain.VisibilityDirect} {
		fields = ResolveFields(&domain.Submission{Text: "hi", Visibility: vis}, owner, TagTable{}, nil)
		if fields.Visibility != vis {
			t.Errorf("Visibility '%s' should stay untouched for silenced owner, got '%s'", vis, fields.Visibility)
		}
	}
}

func TestResolveFieldsSensitivity(t *testing.T) {
	owner := &domain.Account{DefaultSensitive: true}

	fields := ResolveFields(&domain.Submission{Text: "hi"}, owner, TagTable{}, nil)
	if !fields.Sensitive {
		t.Error("Account default sensitivity should apply")
	}

	fields = ResolveFields(&domain.Submission{Text: "hi", Sensitive: boolPtr(false)}, owner, TagTable{}, nil)
	if fields.Sensitive {
		t.Error("Explicit flag should override the default")
	}

	// A content warning forces sensitivity no matter what was requested.
	for _, explicit := range []*bool{nil, boolPtr(false), boolPtr(true)} {
		fields = ResolveFields(&domain.Submission{Text: "hi", SpoilerText: "cw", Sensitive: explicit}, owner, TagTable{}, nil)
		if !fields.Sensitive {
			t.Errorf("Non-empty spoiler must force sensitivity (explicit=%v)", explicit)
		}
	}
}

func TestResolveFieldsLanguage(t *testing.T) {
	owner := &domain.Account{DefaultLanguage: "de"}

	fields := ResolveFields(&domain.Submission{Text: "hi", Language: "en-US"}, owner, TagTable{}, nil)
	if fields.Language != "en" {
		t.Errorf("Expected canonical 'en', got '%s'", fields.Language)
	}

	fields = ResolveFields(&domain.Submission{Text: "hi"}, owner, TagTable{}, nil)
	if fields.Language != "de" {
		t.Errorf("Expected account default 'de', got '%s'", fields.Language)
	}

	fields = ResolveFields(&domain.Submission{Text: "hi", Language: "not a code!!"}, owner, TagTable{}, nil)
	if fields.Language != "de" {
		t.Errorf("Invalid code should fall back to the default, got '%s'", fields.Language)
	}
}

func TestResolveFieldsLanguageDetector(t *testing.T) {
	owner := &domain.Account{}
	detect := func(text string, acc *domain.Account) string {
		return "fr"
	}

	fields := ResolveFields(&domain.Submission{Text: "bonjour"}, owner, TagTable{}, detect)
	if fields.Language != "fr" {
		t.Errorf("Expected detected 'fr', got '%s'", fields.Language)
	}

	// No detector, no default: language stays absent, which is fine.
	fields = ResolveFields(&domain.Submission{Text: "bonjour"}, owner, TagTable{}, nil)
	if fields.Language != "" {
		t.Errorf("Expected absent language, got '%s'", fields.Language)
	}
}

func TestTagTableCanonical(t *testing.T) {
	table := TagTable{}

	if code, ok := table.Canonical("en"); !ok || code != "en" {
		t.Errorf("Canonical('en') = (%s, %t)", code, ok)
	}
	if code, ok := table.Canonical("de-AT"); !ok || code != "de" {
		t.Errorf("Canonical('de-AT') = (%s, %t)", code, ok)
	}
	if _, ok := table.Canonical("!!"); ok {
		t.Error("Canonical('!!') should fail")
	}
}
