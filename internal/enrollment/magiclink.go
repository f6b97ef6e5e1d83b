package enrollment

import (
	"fmt"
	"net/url"
)

// completeEnrollmentPath is the path segment of the page that resumes an
// enrollment from a magic link.
const completeEnrollmentPath = "CompleteEnrollment"

// BuildMagicLink builds the URL emailed to an invitee: the enrollment base
// URL with the CompleteEnrollment path and the invitation id as the
// `invitationId` query parameter.
func BuildMagicLink(baseURL, invitationID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing magic link base URL: %w", err)
	}

	link := u.JoinPath(completeEnrollmentPath)

	query := link.Query()
	query.Set("invitationId", invitationID)
	link.RawQuery = query.Encode()

	return link.String(), nil
}
