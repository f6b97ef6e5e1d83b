package enrollment

import (
	"net/url"
	"strings"
	"testing"
)

func TestBuildMagicLink(t *testing.T) {
	tests := []struct {
		name         string
		baseURL      string
		invitationID string
		want         string
	}{
		{
			name:         "Plain Base",
			baseURL:      "https://portal.example.com",
			invitationID: "inv-1",
			want:         "https://portal.example.com/CompleteEnrollment?invitationId=inv-1",
		},
		{
			name:         "Base With Path",
			baseURL:      "https://portal.example.com/enroll",
			invitationID: "inv-2",
			want:         "https://portal.example.com/enroll/CompleteEnrollment?invitationId=inv-2",
		},
		{
			name:         "Trailing Slash",
			baseURL:      "https://portal.example.com/",
			invitationID: "inv-3",
			want:         "https://portal.example.com/CompleteEnrollment?invitationId=inv-3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildMagicLink(tt.baseURL, tt.invitationID)
			if err != nil {
				t.Fatalf("BuildMagicLink() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BuildMagicLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildMagicLink_EscapesInvitationID(t *testing.T) {
	got, err := BuildMagicLink("https://portal.example.com", "a b/c&d")
	if err != nil {
		t.Fatalf("BuildMagicLink() error = %v", err)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	if !strings.HasSuffix(u.Path, "/CompleteEnrollment") {
		t.Errorf("path = %q, want CompleteEnrollment suffix", u.Path)
	}
	if decoded := u.Query().Get("invitationId"); decoded != "a b/c&d" {
		t.Errorf("invitationId = %q, want 'a b/c&d'", decoded)
	}
}
