// Command importer scrapes rendered question listing pages into a bank file
// the server can load.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/uberfrank/bierephilo/internal/questionbank"
	"github.com/uberfrank/bierephilo/internal/report"
	"github.com/uberfrank/bierephilo/internal/scraper"
)

func main() {
	lang := pflag.StringP("lang", "l", "fr", "language code of the imported bank")
	outDir := pflag.StringP("out", "o", "data", "directory the bank is written to")
	xlsx := pflag.Bool("xlsx", false, "also write a spreadsheet export next to the bank")
	delay := pflag.Duration("delay", 300*time.Millisecond, "pause between two page requests")
	timeout := pflag.Duration("timeout", 2*time.Minute, "overall import timeout")
	pflag.Usage = func() {
		os.Stderr.WriteString("usage: importer [flags] URL...\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	urls := pflag.Args()
	if len(urls) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	im := scraper.NewImporter(nil)
	im.Delay = *delay
	bank, err := im.Import(ctx, *lang, urls...)
	if err != nil {
		log.Fatalf("[Importer] %v", err)
	}
	if bank.IsEmpty() {
		log.Fatalf("[Importer] no questions found on %d page(s)", len(urls))
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("[Importer] %v", err)
	}
	path := questionbank.BankPath(*outDir, *lang)
	if err := bank.Save(path); err != nil {
		log.Fatalf("[Importer] save %s: %v", path, err)
	}
	log.Printf("[Importer] wrote %d questions to %s", bank.Len(), path)

	if *xlsx {
		if err := writeXLSX(filepath.Join(*outDir, "questions-"+*lang+".xlsx"), bank); err != nil {
			log.Fatalf("[Importer] %v", err)
		}
	}
}

func writeXLSX(path string, bank *questionbank.Bank) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	categoryName := func(id string) string {
		if c, ok := bank.Category(id); ok {
			return c.Name
		}
		return id
	}
	if err := report.WriteQuestionsXLSX(f, bank.Questions(), categoryName); err != nil {
		f.Close()
		return err
	}
	log.Printf("[Importer] wrote %s", path)
	return f.Close()
}
