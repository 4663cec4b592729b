// Package aggregate derives category statistics from a todo list.
package aggregate

import "github.com/jaekwang-park/todo-notes/internal/model"

type CategoryCount struct {
	Category    model.Category `json:"category"`
	DisplayName string         `json:"display_name"`
	Count       int            `json:"count"`
}

func CountByCategory(todos []model.Todo, c model.Category) int {
	n := 0
	for _, t := range todos {
		if t.Category == c {
			n++
		}
	}
	return n
}

func TotalCount(todos []model.Todo) int {
	return len(todos)
}

// Counts returns one entry per category in display order.
func Counts(todos []model.Todo) []CategoryCount {
	byCategory := make(map[model.Category]int, len(todos))
	for _, t := range todos {
		byCategory[t.Category]++
	}

	categories := model.Categories()
	out := make([]CategoryCount, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryCount{
			Category:    c,
			DisplayName: c.DisplayName(),
			Count:       byCategory[c],
		})
	}
	return out
}

// FilterByCategory keeps the todos tagged c, preserving order.
func FilterByCategory(todos []model.Todo, c model.Category) []model.Todo {
	out := []model.Todo{}
	for _, t := range todos {
		if t.Category == c {
			out = append(out, t)
		}
	}
	return out
}
