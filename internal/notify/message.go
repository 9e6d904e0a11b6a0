package notify

import "fmt"

const unsubscribeFooter = "<br><br>" +
	"<div>" +
	"If you would like to unsubscribe from new gumdrops, " +
	"change your subscription preferences here: " +
	"<a href='{{amazonSESUnsubscribeUrl}}'>AWS subscription preferences</a>" +
	"</div>"

// Message is the rendered subject and HTML body for one claimant.
type Message struct {
	Subject string
	HTML    string
}

// FormatDropMessage renders the announcement for info under drop's template.
func FormatDropMessage(info ClaimantInfo, drop DropInfo) (Message, error) {
	switch drop.Type {
	case DropToken:
		return Message{
			Subject: "Gumdrop Token Drop",
			HTML: fmt.Sprintf("You received %d token(s) "+
				"(click <a href=\"%s\">here</a> to view the mint on explorer). "+
				"<a href=\"%s\">Click here to claim them!</a>", info.Amount, drop.Meta, info.URL),
		}, nil
	case DropCandy:
		return Message{
			Subject: "Gumdrop NFT Drop",
			HTML: fmt.Sprintf("You received %d Candy Machine pre-sale mint "+
				"(click <a href=\"%s\">here</a> to view the config on explorer). "+
				"<a href=\"%s\">Click here to claim it!</a>", info.Amount, drop.Meta, info.URL),
		}, nil
	case DropEdition:
		return Message{
			Subject: "Gumdrop NFT Drop",
			HTML: fmt.Sprintf("You received %d limited-edition print "+
				"(click <a href=\"%s\">here</a> to view the master on explorer). "+
				"<a href=\"%s\">Click here to claim it!</a>", info.Amount, drop.Meta, info.URL),
		}, nil
	}
	return Message{}, fmt.Errorf("%w %q", ErrUnknownDropType, drop.Type)
}
