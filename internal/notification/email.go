// Package notification sends buyer-facing email via SendGrid.
package notification

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/gigstastore/marketplace/internal/domain/checkout"
	"github.com/gigstastore/marketplace/internal/domain/order"
	"github.com/gigstastore/marketplace/internal/domain/user"
)

var _ checkout.Notifier = (*EmailNotifier)(nil)

// EmailNotifier implements checkout.Notifier over the SendGrid API.
type EmailNotifier struct {
	client    *sendgrid.Client
	users     user.Repository
	fromName  string
	fromEmail string
}

// NewEmailNotifier creates an EmailNotifier. The sender address must be a
// verified identity on the SendGrid account.
func NewEmailNotifier(apiKey string, users user.Repository, fromName, fromEmail string) *EmailNotifier {
	return &EmailNotifier{
		client:    sendgrid.NewSendClient(apiKey),
		users:     users,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// OrderCompleted emails the buyer an order confirmation.
func (n *EmailNotifier) OrderCompleted(ctx context.Context, o *order.Order) error {
	buyer, err := n.users.GetByID(ctx, o.UserID)
	if err != nil {
		return errors.Wrap(err, "resolve buyer")
	}

	subject := fmt.Sprintf("Order confirmed: %s", o.ID)
	plain := fmt.Sprintf(
		"Hi %s,\n\nYour payment went through. Order %s for $%s is confirmed.\n\nThanks for shopping with us.",
		buyer.FullName, o.ID, o.TotalAmount.StringFixed(2))
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your payment went through. Order <strong>%s</strong> for <strong>$%s</strong> is confirmed.</p><p>Thanks for shopping with us.</p>",
		buyer.FullName, o.ID, o.TotalAmount.StringFixed(2))

	msg := mail.NewSingleEmail(
		mail.NewEmail(n.fromName, n.fromEmail),
		subject,
		mail.NewEmail(buyer.FullName, buyer.Email),
		plain, html)

	resp, err := n.client.SendWithContext(ctx, msg)
	if err != nil {
		return errors.Wrap(err, "send confirmation email")
	}
	if resp.StatusCode >= 400 {
		return errors.Errorf("send confirmation email: status %d", resp.StatusCode)
	}
	return nil
}
