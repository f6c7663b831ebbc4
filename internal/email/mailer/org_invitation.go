// internal/email/mailer/org_invitation.go
package mailer

import "github.com/liminalhq/liminal/internal/email"

// InvitationTemplateData contains data for the organization invite template
type InvitationTemplateData struct {
	OrganizationName string
	InviterName      string
	Role             string
	AcceptLink       string
	ExpiresAt        string
}

// SendInvitationEmail sends an organization invite to the given address
func SendInvitationEmail(s *email.Service, to string, data InvitationTemplateData) error {
	emailData := email.EmailData{
		To:           to,
		FromName:     "Liminal",
		Subject:      "You have been invited to " + data.OrganizationName + " on Liminal",
		TemplateName: "org_invitation",
		TemplateData: data,
	}

	return s.SendEmail(emailData)
}
