// Command extract-eml runs the extraction pipeline over local .eml files
// and prints the results as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"receipt-extractor-go/internal/config"
	"receipt-extractor-go/internal/extractor"
	"receipt-extractor-go/internal/fetcher"
)

func main() {
	var (
		currency    = pflag.StringP("currency", "c", "AUD", "default currency when the email names none")
		split       = pflag.Bool("split-items", false, "emit one transaction per digest line item")
		ownerName   = pflag.String("owner-name", "", "mailbox owner display name, never used as a merchant")
		ownerEmail  = pflag.String("owner-email", "", "mailbox owner address")
		mappings    = pflag.StringArrayP("map", "m", nil, "extra domain mapping as domain=Merchant (repeatable)")
		maxAttachMB = pflag.Int("max-attachment-mb", 10, "skip attachments larger than this")
		pretty      = pflag.BoolP("pretty", "p", false, "indent JSON output")
		verbose     = pflag.BoolP("verbose", "v", false, "debug logging")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] file.eml... (use - for stdin)\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logrus.SetOutput(os.Stderr)
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	extraction := config.ExtractionConfig{
		DefaultCurrency:  strings.ToUpper(*currency),
		SplitDigestItems: *split,
		MaxAttachmentMB:  *maxAttachMB,
	}
	for _, m := range *mappings {
		domain, merchant, ok := strings.Cut(m, "=")
		if !ok {
			logrus.Fatalf("invalid mapping %q, expected domain=Merchant", m)
		}
		extraction.Mappings = append(extraction.Mappings, extractor.MappingEntry{Pattern: domain, Merchant: merchant})
	}
	if err := extraction.Validate(); err != nil {
		logrus.Fatalf("invalid flags: %v", err)
	}

	ext := extractor.New(
		extractor.DefaultMerchantMapping().Extend(extraction.Mappings...),
		extractor.Options{
			Owner:            extractor.Account{DisplayName: *ownerName, Email: *ownerEmail},
			DefaultCurrency:  extraction.DefaultCurrency,
			SplitDigestItems: extraction.SplitDigestItems,
		},
	)
	parseOpts := fetcher.ParseOptions{MaxAttachmentBytes: int64(extraction.MaxAttachmentMB) << 20}

	ctx := context.Background()
	results := make([]extractor.Result, 0, pflag.NArg())
	failed := false
	for _, path := range pflag.Args() {
		email, err := readEmail(ctx, path, parseOpts)
		if err != nil {
			logrus.Errorf("%s: %v", path, err)
			failed = true
			continue
		}
		if email.ID == "" {
			email.ID = path
		}
		results = append(results, ext.Extract(email))
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(results); err != nil {
		logrus.Fatalf("failed to write output: %v", err)
	}
	if failed {
		os.Exit(1)
	}
}

func readEmail(ctx context.Context, path string, opts fetcher.ParseOptions) (extractor.RawEmail, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return extractor.RawEmail{}, err
		}
		defer f.Close()
		r = f
	}
	return fetcher.ParseMessage(ctx, r, opts)
}
