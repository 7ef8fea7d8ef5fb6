package trading

import (
	"context"
	"strings"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// ResolveExchange fetches the instrument behind a market identifier. The
// identifier is either an opaque id or a URL slug, distinguished by the
// presence of a hyphen. Slug lookups can match several listings of the same
// logical market; the first one wins.
//
// The result is fetched fresh on every call and never cached. A single round
// trip; retry policy belongs to the caller.
func (c *Client) ResolveExchange(ctx context.Context, marketIDOrSlug string) (domain.Exchange, error) {
	return c.resolveExchange(ctx, nil, marketIDOrSlug)
}

func (c *Client) resolveExchange(ctx context.Context, venue Venue, marketIDOrSlug string) (domain.Exchange, error) {
	const method = "ResolveExchange"

	if marketIDOrSlug == "" {
		return domain.Exchange{}, domain.NewError(domain.CodeInvalidParameter, "market identifier is empty").
			WithMethod(method)
	}

	if venue == nil {
		var err error
		venue, err = c.venueFor("")
		if err != nil {
			return domain.Exchange{}, err
		}
	}

	if !strings.Contains(marketIDOrSlug, "-") {
		ex, err := venue.ExchangeByID(ctx, marketIDOrSlug)
		if err != nil {
			return domain.Exchange{}, domain.Classify(err, method, map[string]string{
				"market": marketIDOrSlug,
			})
		}
		return ex, nil
	}

	matches, err := venue.ExchangesBySlug(ctx, marketIDOrSlug)
	if err != nil {
		return domain.Exchange{}, domain.Classify(err, method, map[string]string{
			"slug": marketIDOrSlug,
		})
	}
	if len(matches) == 0 {
		return domain.Exchange{}, domain.Errorf(domain.CodeNotFound, "no market found for slug %s", marketIDOrSlug).
			WithMethod(method)
	}
	return matches[0], nil
}
