package testdata

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/finch-money/finch/internal/database/repository"
	"github.com/finch-money/finch/internal/rules"
)

// Repos bundles repos used by Seed.
type Repos struct {
	Categories *repository.CategoryRepo
	Rules      *repository.RuleRepo
}

// Seed creates the default category tree and a starter rule set. Ids are
// derived from the seeded names so re-running seed is idempotent.
func Seed(ctx context.Context, repos Repos) error {
	if err := seedCategories(ctx, repos.Categories); err != nil {
		return err
	}
	return seedRules(ctx, repos.Rules)
}

func seededID(kind, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(kind+":"+name)).String()
}

func seedCategories(ctx context.Context, repo *repository.CategoryRepo) error {
	type cat struct {
		Name      string
		Parent    string
		SortOrder int
	}
	cats := []cat{
		{Name: "Shopping", SortOrder: 1},
		{Name: "Food", SortOrder: 10},
		{Name: "Food > Groceries", Parent: "Food", SortOrder: 11},
		{Name: "Food > Restaurants", Parent: "Food", SortOrder: 12},
		{Name: "Food > Takeaway", Parent: "Food", SortOrder: 13},
		{Name: "Fixed Costs", SortOrder: 20},
		{Name: "Fixed Costs > Rent / Mortgage", Parent: "Fixed Costs", SortOrder: 21},
		{Name: "Fixed Costs > Utilities", Parent: "Fixed Costs", SortOrder: 22},
		{Name: "Fixed Costs > Subscriptions", Parent: "Fixed Costs", SortOrder: 23},
		{Name: "Income", SortOrder: 30},
		{Name: "Income > Salary", Parent: "Income", SortOrder: 31},
		{Name: "Misc", SortOrder: 40},
		{Name: "Misc > Transport", Parent: "Misc", SortOrder: 41},
		{Name: "Misc > Fees & Charges", Parent: "Misc", SortOrder: 42},
	}

	for _, c := range cats {
		var parentID *string
		if c.Parent != "" {
			pid := seededID("category", c.Parent)
			parentID = &pid
		}
		if err := repo.Upsert(ctx, repository.Category{
			ID:        seededID("category", c.Name),
			ParentID:  parentID,
			Name:      c.Name,
			SortOrder: c.SortOrder,
		}); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	return nil
}

func seedRules(ctx context.Context, repo *repository.RuleRepo) error {
	starter := []rules.Rule{
		{
			ID:         seededID("rule", "groceries"),
			Label:      "Groceries",
			Enabled:    true,
			Priority:   10,
			Combinator: rules.Any,
			Conditions: []rules.Condition{
				{Field: rules.FieldDescription, Comparator: rules.Contains, Value: "woolworths"},
				{Field: rules.FieldDescription, Comparator: rules.Contains, Value: "aldi"},
				{Field: rules.FieldDescription, Comparator: rules.Contains, Value: "coles"},
			},
			Actions: []rules.Action{
				{Kind: rules.SetCategory, Value: seededID("category", "Food > Groceries")},
			},
		},
		{
			ID:         seededID("rule", "takeaway"),
			Label:      "Takeaway",
			Enabled:    true,
			Priority:   20,
			Combinator: rules.Any,
			Conditions: []rules.Condition{
				{Field: rules.FieldDescription, Comparator: rules.Matches, Value: `uber\s*eats`},
				{Field: rules.FieldDescription, Comparator: rules.Contains, Value: "doordash"},
			},
			Actions: []rules.Action{
				{Kind: rules.SetCategory, Value: seededID("category", "Food > Takeaway")},
				{Kind: rules.AddTag, Value: "delivery"},
			},
		},
		{
			ID:         seededID("rule", "subscriptions"),
			Label:      "Subscriptions",
			Enabled:    true,
			Priority:   30,
			Combinator: rules.All,
			Conditions: []rules.Condition{
				{Field: rules.FieldDescription, Comparator: rules.Matches, Value: `spotify|netflix`},
				{Field: rules.FieldAmount, Comparator: rules.LessThan, Value: "0"},
			},
			Actions: []rules.Action{
				{Kind: rules.SetCategory, Value: seededID("category", "Fixed Costs > Subscriptions")},
			},
		},
		{
			ID:         seededID("rule", "salary"),
			Label:      "Salary",
			Enabled:    true,
			Priority:   5,
			Combinator: rules.All,
			Conditions: []rules.Condition{
				{Field: rules.FieldDescription, Comparator: rules.Contains, Value: "salary"},
				{Field: rules.FieldAmount, Comparator: rules.GreaterThan, Value: "0"},
			},
			Actions: []rules.Action{
				{Kind: rules.SetCategory, Value: seededID("category", "Income > Salary")},
				{Kind: rules.RenamePayee, Value: "Employer"},
			},
			Stop: true,
		},
	}

	for _, r := range starter {
		if err := repo.Upsert(ctx, r); err != nil {
			return fmt.Errorf("seed rule %s: %w", r.Label, err)
		}
	}
	return nil
}

// SampleCSV renders n rows of plausible bank-export CSV for demos and tests.
// The same seed always yields the same bytes.
func SampleCSV(seed int64, n int) []byte {
	rng := rand.New(rand.NewSource(seed))
	descs := []string{
		"UBER EATS* SUSHI", "AMAZON.COM*XYZ", "WOOLWORTHS 1123", "SPOTIFY P1234",
		"SALARY ACME PTY LTD", "ALDI STORES", "SHELL COLES EXPRESS", "NETFLIX.COM",
	}
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	out := []byte("Date,Description,Amount\n")
	for i := 0; i < n; i++ {
		d := base.AddDate(0, 0, rng.Intn(90))
		desc := descs[rng.Intn(len(descs))]
		cents := rng.Intn(20000) + 500
		sign := "-"
		if desc == "SALARY ACME PTY LTD" {
			sign = ""
			cents = 350000
		}
		out = append(out, fmt.Sprintf("%s,%s,%s%d.%02d\n",
			d.Format(time.DateOnly), desc, sign, cents/100, cents%100)...)
	}
	return out
}
