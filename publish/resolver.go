package publish

import (
	"strings"

	"github.com/trollianspace/mastodon/domain"
	"golang.org/x/text/language"
)

// DerivedFields are the computed publication fields of a submission.
type DerivedFields struct {
	Text        string
	Visibility  domain.Visibility
	Sensitive   bool
	SpoilerText string
	Language    string
}

// LanguageTable canonicalizes a language code, reporting whether the code
// is known at all.
type LanguageTable interface {
	Canonical(code string) (string, bool)
}

// LanguageDetector guesses a language for the given text and submitter.
// It may return "" when nothing can be detected; an absent language is
// not an error.
type LanguageDetector func(text string, acc *domain.Account) string

// TagTable validates codes against the BCP 47 registry.
type TagTable struct{}

func (TagTable) Canonical(code string) (string, bool) {
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return base.String(), true
}

// ResolveFields computes the derived fields for a submission against the
// owner's defaults and moderation state:
//
//   - an empty body with a content warning uses the warning as body text
//   - visibility falls back to the account default; silenced accounts
//     have public downgraded to unlisted
//   - sensitivity falls back to the account default and is forced on
//     whenever a content warning is present
//   - language: validated explicit code, else account default, else
//     best-effort detection
func ResolveFields(sub *domain.Submission, owner *domain.Account, langs LanguageTable, detect LanguageDetector) DerivedFields {
	text := sub.Text
	if strings.TrimSpace(text) == "" && sub.SpoilerText != "" {
		text = sub.SpoilerText
	}

	visibility := sub.Visibility
	if visibility == "" {
		visibility = owner.DefaultVisibility
	}
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}
	if visibility == domain.VisibilityPublic && owner.Silenced {
		visibility = domain.VisibilityUnlisted
	}

	sensitive := owner.DefaultSensitive
	if sub.Sensitive != nil {
		sensitive = *sub.Sensitive
	}
	if sub.SpoilerText != "" {
		sensitive = true
	}

	lang := ""
	if sub.Language != "" && langs != nil {
		if canonical, ok := langs.Canonical(sub.Language); ok {
			lang = canonical
		}
	}
	if lang == "" {
		lang = owner.DefaultLanguage
	}
	if lang == "" && detect != nil {
		lang = detect(text, owner)
	}

	return DerivedFields{
		Text:        text,
		Visibility:  visibility,
		Sensitive:   sensitive,
		SpoilerText: sub.SpoilerText,
		Language:    lang,
	}
}
