package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/jobtriage/internal/types"
)

// Notifier posts a message for every newly queued submission
type Notifier struct {
	client       Client
	recipient    string
	dashboardURL string
}

// NewNotifier sends to recipient (empty means the client's default channel).
func NewNotifier(client Client, recipient, dashboardURL string) *Notifier {
	return &Notifier{client: client, recipient: recipient, dashboardURL: strings.TrimRight(dashboardURL, "/")}
}

// Notify implements the approval queue's post-commit hook.
func (n *Notifier) Notify(ctx context.Context, sub types.Submission) error {
	return n.client.Send(ctx, n.recipient, ApprovalText(sub, n.dashboardURL))
}

// ApprovalText is the notification body for a queued submission.
func ApprovalText(sub types.Submission, dashboardURL string) string {
	location := sub.Parsed.Location
	if location == "" {
		location = "Not specified"
	}
	var b strings.Builder
	b.WriteString("Resume ready for your approval!\n\n")
	fmt.Fprintf(&b, "Role: %s\n", sub.Parsed.Role)
	fmt.Fprintf(&b, "Cloud: %s\n", strings.ToUpper(string(sub.Parsed.Cloud)))
	fmt.Fprintf(&b, "Location: %s\n", location)
	if !sub.Validation.OK {
		fmt.Fprintf(&b, "Validation: %d issue(s)\n", len(sub.Validation.Errors))
	}
	if dashboardURL != "" {
		fmt.Fprintf(&b, "\nReview at: %s/approval", dashboardURL)
	}
	return strings.TrimRight(b.String(), "\n")
}
