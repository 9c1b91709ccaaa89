package quotes

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"stockalert/pkg/errors"
)

const (
	tradesSelector = "tbody#umsaetze_body"
	priceColumn    = 4 // zero based, fifth cell of a trade row
)

// ParsePrice extracts the most recent traded price from a Tradegate order book page.
// The latest trade is the first row of the trades table; its fifth cell holds the price.
func ParsePrice(r io.Reader) (decimal.Decimal, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrPriceUnavailable, "failed to parse quote page: "+err.Error())
	}

	body := doc.Find(tradesSelector).First()
	if body.Length() == 0 {
		return decimal.Zero, errors.Wrap(errors.ErrPriceUnavailable, "trades table not found")
	}

	row := body.Find("tr").First()
	if row.Length() == 0 {
		return decimal.Zero, errors.Wrap(errors.ErrPriceUnavailable, "no trades listed")
	}

	cells := row.Find("td")
	if cells.Length() <= priceColumn {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "trade row has %d cells", cells.Length())
	}

	return ParseGermanDecimal(cells.Eq(priceColumn).Text())
}

// ParseGermanDecimal parses numbers written with a decimal comma, e.g. "1.234,50".
// Whitespace and non-breaking spaces are ignored. Without a comma, a point is the decimal separator.
func ParseGermanDecimal(text string) (decimal.Decimal, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t', '\n', '\r':
			return -1
		}
		return r
	}, text)

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	if s == "" {
		return decimal.Zero, errors.Wrap(errors.ErrPriceUnavailable, "price cell is empty")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrPriceUnavailable, "malformed price %q", text)
	}
	return d, nil
}
