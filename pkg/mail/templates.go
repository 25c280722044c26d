package mail

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

var invitationTemplate = template.Must(template.New("invitation").Parse(
	`Hello,

{{.InviterName}} invited you to join {{.OrganizationName}} on EstateHub as {{.Role}}.

Accept the invitation here:
{{.AcceptURL}}

This link expires on {{.ExpiresAt.Format "2006-01-02 15:04 MST"}}.
`))

// Invitation carries the values rendered into an organization invitation email.
type Invitation struct {
	To               string
	InviterName      string
	OrganizationName string
	Role             string
	AcceptURL        string
	ExpiresAt        time.Time
}

// InvitationMessage renders the invitation email.
func InvitationMessage(inv Invitation) (Message, error) {
	var body bytes.Buffer
	if err := invitationTemplate.Execute(&body, inv); err != nil {
		return Message{}, fmt.Errorf("mail: render invitation: %w", err)
	}
	return Message{
		To:      []string{inv.To},
		Subject: fmt.Sprintf("You're invited to join %s", inv.OrganizationName),
		Body:    body.String(),
	}, nil
}
