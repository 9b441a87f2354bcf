package transaction

import "slices"

type Category string

const (
	CategorySession     Category = "session"
	CategoryEvaluation  Category = "evaluation"
	CategorySupervision Category = "supervision"
	CategoryWorkshop    Category = "workshop"
	CategoryReport      Category = "report"
	CategoryOtherIncome Category = "otherIncome"

	CategoryRent         Category = "rent"
	CategoryUtilities    Category = "utilities"
	CategorySupplies     Category = "supplies"
	CategorySoftware     Category = "software"
	CategoryMarketing    Category = "marketing"
	CategoryEducation    Category = "education"
	CategoryTaxes        Category = "taxes"
	CategoryInsurance    Category = "insurance"
	CategoryOtherExpense Category = "otherExpense"
)

var categories = map[Type][]Category{
	TypeIncome: {
		CategorySession, CategoryEvaluation, CategorySupervision,
		CategoryWorkshop, CategoryReport, CategoryOtherIncome,
	},
	TypeExpense: {
		CategoryRent, CategoryUtilities, CategorySupplies, CategorySoftware,
		CategoryMarketing, CategoryEducation, CategoryTaxes, CategoryInsurance,
		CategoryOtherExpense,
	},
}

// CategoriesFor lists the categories allowed for t.
func CategoriesFor(t Type) []Category {
	return slices.Clone(categories[t])
}

func (c Category) BelongsTo(t Type) bool {
	return slices.Contains(categories[t], c)
}

func (c Category) Valid() bool {
	return c.BelongsTo(TypeIncome) || c.BelongsTo(TypeExpense)
}

// Type returns the transaction type c belongs to, or "" when unknown.
func (c Category) Type() Type {
	switch {
	case c.BelongsTo(TypeIncome):
		return TypeIncome
	case c.BelongsTo(TypeExpense):
		return TypeExpense
	}
	return ""
}
