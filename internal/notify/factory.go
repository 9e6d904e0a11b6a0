package notify

import (
	"fmt"
	"log"
)

type options struct {
	logger *log.Logger
	email  EmailClient
}

// Option customises a notifier built by New.
type Option func(*options)

// WithLogger sets the logger used by the built notifier.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEmailClient replaces the SES client built from AuthKeys.
func WithEmailClient(c EmailClient) Option {
	return func(o *options) { o.email = c }
}

// New builds the notifier for kind. It is meant to be called once per batch and reused for every claimant.
func New(kind ChannelKind, auth AuthKeys, source string, opts ...Option) (Notifier, error) {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	switch kind {
	case ChannelEmail:
		for _, key := range []string{"accessKeyId", "secretAccessKey"} {
			if auth[key] == "" {
				return nil, fmt.Errorf("%w: %s", ErrMissingCredential, key)
			}
		}
		if source == "" {
			return nil, fmt.Errorf("%w: source address", ErrMissingCredential)
		}
		client := o.email
		if client == nil {
			c, err := newSESClient(auth)
			if err != nil {
				return nil, fmt.Errorf("ses session: %w", err)
			}
			client = c
		}
		return &Email{client: client, source: source, logger: o.logger}, nil
	case ChannelManual:
		return &Manual{logger: o.logger}, nil
	case ChannelWallets:
		return &WalletList{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownChannel, kind)
}
