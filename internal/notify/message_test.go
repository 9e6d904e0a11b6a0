package notify

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatDropMessage(t *testing.T) {
	info := ClaimantInfo{Handle: "a@example.com", URL: "https://claim.example/abc", Amount: 5}
	cases := []struct {
		drop    DropInfo
		subject string
		phrase  string
	}{
		{DropInfo{Type: DropToken, Meta: "https://explorer/mint"}, "Gumdrop Token Drop", "You received 5 token(s)"},
		{DropInfo{Type: DropCandy, Meta: "https://explorer/config"}, "Gumdrop NFT Drop", "You received 5 Candy Machine pre-sale mint"},
		{DropInfo{Type: DropEdition, Meta: "https://explorer/master"}, "Gumdrop NFT Drop", "You received 5 limited-edition print"},
	}
	for _, tc := range cases {
		t.Run(string(tc.drop.Type), func(t *testing.T) {
			msg, err := FormatDropMessage(info, tc.drop)
			if err != nil {
				t.Fatalf("format: %v", err)
			}
			if msg.Subject != tc.subject {
				t.Fatalf("subject = %q, want %q", msg.Subject, tc.subject)
			}
			for _, want := range []string{tc.phrase, info.URL, tc.drop.Meta} {
				if !strings.Contains(msg.HTML, want) {
					t.Fatalf("body %q missing %q", msg.HTML, want)
				}
			}
		})
	}
}

func TestFormatDropMessageUnknownType(t *testing.T) {
	_, err := FormatDropMessage(ClaimantInfo{}, DropInfo{Type: "Airdrop"})
	if !errors.Is(err, ErrUnknownDropType) {
		t.Fatalf("expected ErrUnknownDropType, got %v", err)
	}
}
