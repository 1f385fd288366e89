// Package scraper imports question banks from rendered question listing pages.
package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/uberfrank/bierephilo/internal/questionbank"
)

const userAgent = "BierePhilo-Importer/1.0 (+https://github.com/uberfrank/bierephilo)"

// Importer downloads listing pages and turns them into banks.
type Importer struct {
	client *http.Client
	// Delay is waited between two page requests.
	Delay time.Duration
}

// NewImporter uses client, or a client with an 8 second timeout when nil.
func NewImporter(client *http.Client) *Importer {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	return &Importer{client: client, Delay: 300 * time.Millisecond}
}

func (im *Importer) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to load %s: %s", pageURL, resp.Status)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// Import fetches every page in order and merges them into one bank for lang.
// Categories and questions seen on an earlier page win over later duplicates.
func (im *Importer) Import(ctx context.Context, lang string, pageURLs ...string) (*questionbank.Bank, error) {
	var (
		cats []questionbank.Category
		qs   []questionbank.Question
		seen = map[string]bool{}
	)
	for i, pageURL := range pageURLs {
		if i > 0 && im.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(im.Delay):
			}
		}
		doc, err := im.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		l := parseListing(doc)
		for _, c := range l.Categories {
			if !seen[c.ID] {
				seen[c.ID] = true
				cats = append(cats, c)
			}
		}
		qs = append(qs, l.Questions...)
		log.Printf("[Importer] %s: %d questions, %d categories", pageURL, len(l.Questions), len(l.Categories))
	}
	return questionbank.NewBank(lang, cats, qs), nil
}
