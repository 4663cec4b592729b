package aggregate

import (
	"testing"

	"github.com/jaekwang-park/todo-notes/internal/model"
)

func todos(categories ...model.Category) []model.Todo {
	out := make([]model.Todo, len(categories))
	for i, c := range categories {
		out[i] = model.Todo{ID: string(rune('a' + i)), Category: c}
	}
	return out
}

func TestCountByCategory(t *testing.T) {
	list := todos(model.CategoryWork, model.CategoryShopping, model.CategoryWork, model.CategoryFitness)

	tests := []struct {
		category model.Category
		want     int
	}{
		{model.CategoryWork, 2},
		{model.CategoryShopping, 1},
		{model.CategoryFitness, 1},
		{model.CategoryPersonal, 0},
		{model.CategoryCoding, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			if got := CountByCategory(list, tt.category); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPartition(t *testing.T) {
	lists := map[string][]model.Todo{
		"empty":  {},
		"single": todos(model.CategoryHealth),
		"mixed": todos(
			model.CategoryPersonal, model.CategoryWork, model.CategoryShopping,
			model.CategoryCoding, model.CategoryHealth, model.CategoryFitness,
			model.CategoryWork, model.CategoryWork,
		),
	}

	for name, list := range lists {
		t.Run(name, func(t *testing.T) {
			sum := 0
			for _, c := range model.Categories() {
				sum += CountByCategory(list, c)
			}
			if sum != TotalCount(list) {
				t.Errorf("category counts sum to %d, total is %d", sum, TotalCount(list))
			}
		})
	}
}

func TestCounts(t *testing.T) {
	got := Counts(todos(model.CategoryCoding, model.CategoryCoding, model.CategoryPersonal))

	if len(got) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(got))
	}
	if got[0].Category != model.CategoryPersonal || got[0].DisplayName != "Personal" || got[0].Count != 1 {
		t.Errorf("unexpected first entry: %+v", got[0])
	}
	if got[3].Category != model.CategoryCoding || got[3].Count != 2 {
		t.Errorf("unexpected coding entry: %+v", got[3])
	}
	if got[5].DisplayName != "Fitness" || got[5].Count != 0 {
		t.Errorf("unexpected last entry: %+v", got[5])
	}
}

func TestFilterByCategory(t *testing.T) {
	list := todos(model.CategoryWork, model.CategoryHealth, model.CategoryWork)

	got := FilterByCategory(list, model.CategoryWork)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("unexpected filter result: %+v", got)
	}

	if got := FilterByCategory(list, model.CategoryFitness); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}
