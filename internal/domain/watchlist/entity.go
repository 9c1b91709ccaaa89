package watchlist

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"stockalert/pkg/errors"
)

// ISINLength is the length of an International Securities Identification Number
const ISINLength = 12

// Entry is one watched security with its alert thresholds
type Entry struct {
	ISIN           string   `json:"isin"`
	UpperThreshold *float64 `json:"upper_threshold"`
	LowerThreshold *float64 `json:"lower_threshold"`
	Active         bool     `json:"active"`
}

// UnmarshalJSON decodes an entry, treating a missing "active" field as true
func (e *Entry) UnmarshalJSON(data []byte) error {
	type alias Entry
	aux := struct {
		*alias
		Active *bool `json:"active"`
	}{alias: (*alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	e.Active = aux.Active == nil || *aux.Active
	return nil
}

// Clone returns a deep copy of the entry
func (e Entry) Clone() Entry {
	out := e
	if e.UpperThreshold != nil {
		v := *e.UpperThreshold
		out.UpperThreshold = &v
	}
	if e.LowerThreshold != nil {
		v := *e.LowerThreshold
		out.LowerThreshold = &v
	}
	return out
}

// BreachKind names the bound a price crossed
type BreachKind string

const (
	BreachUpper BreachKind = "upper"
	BreachLower BreachKind = "lower"
)

// Breach describes a fired threshold
type Breach struct {
	Kind      BreachKind
	Threshold float64
}

// Reason is the human readable description used in notifications
func (b Breach) Reason() string {
	switch b.Kind {
	case BreachUpper:
		return "reached or exceeded upper threshold " + FormatNumber(b.Threshold)
	case BreachLower:
		return "reached or fell below lower threshold " + FormatNumber(b.Threshold)
	default:
		return "crossed threshold " + FormatNumber(b.Threshold)
	}
}

// Evaluate checks the price against both thresholds.
// Upper is checked first and lower second; when both hold the lower breach is reported.
func (e Entry) Evaluate(price float64) (Breach, bool) {
	var (
		breach Breach
		hit    bool
	)

	if e.UpperThreshold != nil && price >= *e.UpperThreshold {
		breach = Breach{Kind: BreachUpper, Threshold: *e.UpperThreshold}
		hit = true
	}
	if e.LowerThreshold != nil && price <= *e.LowerThreshold {
		breach = Breach{Kind: BreachLower, Threshold: *e.LowerThreshold}
		hit = true
	}

	return breach, hit
}

// NormalizeISIN trims and upper-cases user input
func NormalizeISIN(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}

// ValidateISIN checks the identifier is exactly 12 ASCII letters or digits
func ValidateISIN(isin string) error {
	if len(isin) != ISINLength {
		return errors.Wrapf(errors.ErrInvalidISIN, "%q must be %d alphanumeric characters", isin, ISINLength)
	}
	for _, r := range isin {
		if !isAlphanumeric(r) {
			return errors.Wrapf(errors.ErrInvalidISIN, "%q must be %d alphanumeric characters", isin, ISINLength)
		}
	}
	return nil
}

func isAlphanumeric(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// ParseThreshold parses an optional threshold from form or API input.
// Empty input means "unset". A comma decimal separator is accepted.
func ParseThreshold(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.Wrapf(errors.ErrInvalidThreshold, "%q is not a number", raw)
	}
	return &v, nil
}

// FormatNumber renders a price or threshold without trailing zeros
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Float returns a pointer to v, handy for building entries
func Float(v float64) *float64 {
	return &v
}
