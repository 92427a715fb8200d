// Package exchange abstracts the venue-specific REST surface behind a small
// capability interface so the rest of the pipeline never touches an exchange
// SDK directly.
package exchange

import "context"

// Exchange is the capability set the pipeline needs from a venue. Concrete
// implementations are selected at construction time.
type Exchange interface {
	// Name identifies the venue, e.g. "Binance".
	Name() string
	// ListSymbols returns the tradable symbols quoted in quoteAsset.
	ListSymbols(ctx context.Context, quoteAsset string) ([]string, error)
}
