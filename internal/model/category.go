package model

import "fmt"

// Category is one of the fixed set of todo tags.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryShopping Category = "shopping"
	CategoryCoding   Category = "coding"
	CategoryHealth   Category = "health"
	CategoryFitness  Category = "fitness"
)

// DefaultCategory is assigned when a todo carries no category.
const DefaultCategory = CategoryPersonal

var categoryNames = map[Category]string{
	CategoryPersonal: "Personal",
	CategoryWork:     "Work",
	CategoryShopping: "Shopping",
	CategoryCoding:   "Coding",
	CategoryHealth:   "Health",
	CategoryFitness:  "Fitness",
}

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryPersonal,
		CategoryWork,
		CategoryShopping,
		CategoryCoding,
		CategoryHealth,
		CategoryFitness,
	}
}

func (c Category) IsValid() bool {
	_, ok := categoryNames[c]
	return ok
}

// DisplayName returns the label shown for c. Unknown values are labelled
// as the default category.
func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[DefaultCategory]
}

// ParseCategory validates user input. An empty string selects DefaultCategory.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return DefaultCategory, nil
	}
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
