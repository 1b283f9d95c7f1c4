package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseVisibility(t *testing.T) {
	for _, valid := range []string{"public", "unlisted", "followers", "direct"} {
		v, ok := ParseVisibility(valid)
		if !ok {
			t.Errorf("ParseVisibility(%q) should succeed", valid)
		}
		if string(v) != valid {
			t.Errorf("ParseVisibility(%q) returned %q", valid, v)
		}
	}

	for _, invalid := range []string{"", "Public", "private", "everyone"} {
		if _, ok := ParseVisibility(invalid); ok {
			t.Errorf("ParseVisibility(%q) should fail", invalid)
		}
	}
}

func TestStatusReply(t *testing.T) {
	status := Status{Id: uuid.New()}
	if status.Reply() {
		t.Error("Status without InReplyToId should not be a reply")
	}

	parent := uuid.New()
	status.InReplyToId = &parent
	if !status.Reply() {
		t.Error("Status with InReplyToId should be a reply")
	}
}

func TestStatusToString(t *testing.T) {
	id := uuid.New()
	status := &Status{
		Id:         id,
		CreatedBy:  "vriska",
		Content:    "8888888888888888",
		Visibility: VisibilityPublic,
		CreatedAt:  time.Now(),
	}

	result := status.ToString()
	if !contains(result, "vriska") {
		t.Errorf("ToString() should contain creator, got: %s", result)
	}
	if !contains(result, id.String()) {
		t.Errorf("ToString() should contain ID, got: %s", result)
	}
}

func TestMediaAttachmentVideo(t *testing.T) {
	cases := map[string]bool{
		"image": false,
		"video": true,
		"gifv":  true,
		"":      false,
	}
	for fileType, want := range cases {
		m := MediaAttachment{FileType: fileType}
		if m.Video() != want {
			t.Errorf("Video() for type %q = %t, want %t", fileType, m.Video(), want)
		}
	}
}

func TestAccountLocalAndAcct(t *testing.T) {
	local := Account{Username: "karkat"}
	if !local.Local() {
		t.Error("Account without domain should be local")
	}
	if local.Acct() != "karkat" {
		t.Errorf("Expected acct 'karkat', got '%s'", local.Acct())
	}

	remote := Account{Username: "karkat", Domain: "alternia.example"}
	if remote.Local() {
		t.Error("Account with domain should not be local")
	}
	if remote.Acct() != "karkat@alternia.example" {
		t.Errorf("Expected acct 'karkat@alternia.example', got '%s'", remote.Acct())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("too many attachments")
	if err.Error() != "too many attachments" {
		t.Errorf("Expected reason in Error(), got '%s'", err.Error())
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
