package notify

import (
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("no-reply@solenne.local", "mia@example.com", "Reminder", "See you tomorrow.")
	for _, want := range []string{
		"From: no-reply@solenne.local\r\n",
		"To: mia@example.com\r\n",
		"Subject: Reminder\r\n",
		"\r\n\r\nSee you tomorrow.\r\n",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestNewSMTPSenderDefaultsFrom(t *testing.T) {
	s := NewSMTPSender(" mail ", " 1025 ", "  ")
	if s.from != "no-reply@solenne.local" {
		t.Fatalf("from = %q", s.from)
	}
	if s.addr != "mail:1025" {
		t.Fatalf("addr = %q", s.addr)
	}
}
