package mailer

import "embed"

const (
	FromName                    = "StoreDesk"
	maxRetries                  = 3
	StoreWelcomeTemplate        = "store_welcome.tmpl"
	SubscriptionRenewedTemplate = "subscription_renewed.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) error
}
