package identity

import (
	"fmt"

	"storedesk/internal/infra/dbx"
)

const (
	KindLocal  = "local"
	KindGoTrue = "gotrue"
)

type Options struct {
	Kind       string
	BcryptCost int

	GoTrueURL  string
	ServiceKey string
	AnonKey    string
}

// New builds the provider named by opts.Kind. db backs the local provider's
// credentials table and is ignored for gotrue.
func New(opts Options, db dbx.Querier) (Provider, error) {
	switch opts.Kind {
	case "", KindLocal:
		return NewLocalProvider(NewPgCredentials(db), opts.BcryptCost)
	case KindGoTrue:
		if opts.GoTrueURL == "" || opts.ServiceKey == "" || opts.AnonKey == "" {
			return nil, fmt.Errorf("gotrue provider needs a url, service key and anon key")
		}
		return NewGoTrueProvider(opts.GoTrueURL, opts.ServiceKey, opts.AnonKey), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", opts.Kind)
	}
}
