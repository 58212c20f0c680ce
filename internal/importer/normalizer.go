package importer

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finch-money/finch/internal/model"
	"github.com/finch-money/finch/internal/profile"
)

// Normalizer turns raw CSV records into canonical transaction candidates for
// one account and batch. Aside from assigning a fresh record ID, it is a pure
// function of (row, profile): the same row always yields the same fingerprint.
type Normalizer struct {
	Profile   profile.Profile
	AccountID string
	BatchID   string
	Currency  string
}

// Row normalizes one record. Failures return a MalformedRowError naming the
// row number and the offending field.
func (n *Normalizer) Row(rowNum int, rec []string) (model.Transaction, error) {
	minCols := n.Profile.DateCol
	if n.Profile.AmountCol > minCols {
		minCols = n.Profile.AmountCol
	}
	if n.Profile.DescCol > minCols {
		minCols = n.Profile.DescCol
	}
	if n.Profile.PayeeCol > minCols {
		minCols = n.Profile.PayeeCol
	}
	if len(rec) <= minCols {
		return model.Transaction{}, &MalformedRowError{
			Row:    rowNum,
			Reason: "not enough columns",
		}
	}

	dateRaw := strings.TrimSpace(rec[n.Profile.DateCol])
	if dateRaw == "" {
		return model.Transaction{}, &MalformedRowError{Row: rowNum, Field: "date", Reason: "empty"}
	}
	layout := n.Profile.DateFormat
	if layout == "" {
		layout = time.DateOnly
	}
	date, err := time.Parse(layout, dateRaw)
	if err != nil {
		return model.Transaction{}, &MalformedRowError{
			Row:    rowNum,
			Field:  "date",
			Reason: "cannot parse " + dateRaw + " with layout " + layout,
		}
	}
	date = model.DateOnly(date)

	amount, err := parseAmount(rec[n.Profile.AmountCol], n.Profile)
	if err != nil {
		return model.Transaction{}, &MalformedRowError{
			Row:    rowNum,
			Field:  "amount",
			Reason: err.Error(),
		}
	}

	desc := strings.TrimSpace(rec[n.Profile.DescCol])
	if desc == "" {
		return model.Transaction{}, &MalformedRowError{Row: rowNum, Field: "description", Reason: "empty"}
	}

	payee := ""
	if n.Profile.PayeeCol >= 0 {
		payee = strings.TrimSpace(rec[n.Profile.PayeeCol])
	}

	currency := n.Currency
	if n.Profile.Currency != "" {
		currency = n.Profile.Currency
	}

	return model.Transaction{
		ID:          uuid.NewString(),
		AccountID:   n.AccountID,
		BatchID:     n.BatchID,
		Date:        date,
		Amount:      amount,
		Currency:    currency,
		Payee:       payee,
		Description: desc,
		Fingerprint: model.ComputeFingerprint(n.AccountID, date, amount, desc),
	}, nil
}

// parseAmount applies the profile's decimal/thousands convention and strips
// configured currency decoration, then parses to fixed-point. Floats never
// touch the value.
func parseAmount(raw string, p profile.Profile) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	for _, ch := range p.AmountStrip {
		s = strings.ReplaceAll(s, string(ch), "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if p.DecimalComma {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	// some exports wrap negatives in parentheses
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	return decimal.NewFromString(s)
}
