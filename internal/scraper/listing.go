package scraper

import (
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/uberfrank/bierephilo/internal/questionbank"
)

// Listing is what one page contributes to a bank.
type Listing struct {
	Categories []questionbank.Category
	Questions  []questionbank.Question
}

// ParseListing reads a question listing page. Each question is a
// ".question-card" with a numeric data-id and a ".question-text". Tags come
// from the card's data-tags attribute when present, otherwise from its
// ".question-tags .tag" badges. Categories come from ".category-btn" buttons.
func ParseListing(r io.Reader) (Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Listing{}, err
	}
	return parseListing(doc), nil
}

func parseListing(doc *goquery.Document) Listing {
	var l Listing
	idByName := map[string]string{}
	doc.Find(".category-btn[data-category]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("data-category")
		id = strings.TrimSpace(id)
		name := clean(s.Text())
		if id == "" || id == questionbank.AllCategories {
			return
		}
		if name == "" {
			name = id
		}
		l.Categories = append(l.Categories, questionbank.Category{ID: id, Name: name})
		idByName[strings.ToLower(name)] = id
	})

	doc.Find(".question-card").Each(func(_ int, card *goquery.Selection) {
		raw, _ := card.Attr("data-id")
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		text := clean(card.Find(".question-text").First().Text())
		if text == "" {
			return
		}
		l.Questions = append(l.Questions, questionbank.Question{
			ID:   id,
			Text: text,
			Tags: cardTags(card, idByName),
		})
	})
	return l
}

func cardTags(card *goquery.Selection, idByName map[string]string) []string {
	if attr, ok := card.Attr("data-tags"); ok {
		return strings.Fields(attr)
	}
	tags := []string{}
	card.Find(".question-tags .tag").Each(func(_ int, s *goquery.Selection) {
		if tag, ok := s.Attr("data-tag"); ok && strings.Contains(tag, ":") {
			tags = append(tags, strings.TrimSpace(tag))
			return
		}
		label := clean(s.Text())
		if label == "" {
			return
		}
		switch {
		case s.HasClass("difficulty"):
			tags = append(tags, questionbank.TopicDifficulty.Tag(label))
		case idByName[strings.ToLower(label)] != "":
			tags = append(tags, questionbank.MakeTag(questionbank.CategoryPrefix, idByName[strings.ToLower(label)]))
		default:
			// badges show themes with underscores turned into spaces
			tags = append(tags, questionbank.TopicTheme.Tag(strings.ReplaceAll(label, " ", "_")))
		}
	})
	return tags
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
