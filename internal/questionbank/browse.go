package questionbank

import "strings"

// DefaultPerPage is the number of questions shown per browse page.
const DefaultPerPage = 10

// AllCategories selects every category in a Filter.
const AllCategories = "all"

// CategoryCount is a category together with its number of questions.
type CategoryCount struct {
	Category
	Count int `json:"count"`
}

// CategoryCounts returns every category with the number of questions tagged with it.
func (b *Bank) CategoryCounts() []CategoryCount {
	cats := b.Categories()
	out := make([]CategoryCount, 0, len(cats))
	for _, c := range cats {
		out = append(out, CategoryCount{Category: c, Count: b.CountTagged(MakeTag(CategoryPrefix, c.ID))})
	}
	return out
}

// Filter narrows the browse list. Empty fields match everything.
type Filter struct {
	Category string
	Search   string
}

// Filter returns the questions matching f, in bank order.
func (b *Bank) Filter(f Filter) []Question {
	qs := b.Questions()
	if f.Category != "" && f.Category != AllCategories {
		tag := MakeTag(CategoryPrefix, f.Category)
		qs = filter(qs, func(q Question) bool { return q.HasTag(tag) })
	}
	if query := strings.ToLower(strings.TrimSpace(f.Search)); query != "" {
		qs = filter(qs, func(q Question) bool {
			return strings.Contains(strings.ToLower(q.Text), query) ||
				strings.Contains(strings.ToLower(strings.Join(q.Tags, " ")), query)
		})
	}
	return qs
}

func filter(qs []Question, keep func(Question) bool) []Question {
	out := qs[:0]
	for _, q := range qs {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}

// Page is one page of a question list.
type Page struct {
	Items      []Question `json:"items"`
	Page       int        `json:"page"`
	PerPage    int        `json:"perPage"`
	TotalPages int        `json:"totalPages"`
	Total      int        `json:"total"`
}

// Paginate slices qs into pages of perPage and returns the requested one.
// The page number is clamped into range; an empty list still has one page.
func Paginate(qs []Question, page, perPage int) Page {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := (len(qs) + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(qs))
	items := []Question{}
	if start < end {
		items = qs[start:end]
	}
	return Page{Items: items, Page: page, PerPage: perPage, TotalPages: totalPages, Total: len(qs)}
}
