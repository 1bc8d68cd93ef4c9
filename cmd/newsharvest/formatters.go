package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pevans/newsharvest/config"
	"github.com/pevans/newsharvest/newsfeed"
	"github.com/pevans/newsharvest/sources"
)

// printCategories lists the configured categories with their source keys.
func printCategories(w io.Writer, catalog *sources.Catalog) {
	if len(catalog.Categories) == 0 {
		fmt.Fprintln(w, "No categories configured.")
		return
	}

	fmt.Fprintln(w, "Available categories:")
	for _, cat := range catalog.Categories {
		keys := sources.Keys(catalog.SourcesFor(cat.Name))
		fmt.Fprintf(w, "  %-24s %d sources", cat.Name, len(keys))
		if cat.Description != "" {
			fmt.Fprintf(w, "  %s", cat.Description)
		}
		fmt.Fprintln(w)
		if len(keys) > 0 {
			fmt.Fprintf(w, "  %-24s %s\n", "", strings.Join(keys, ", "))
		}
	}
}

// printSummary writes the end-of-run summary: per category counts and
// per-source outcomes.
func printSummary(w io.Writer, result *newsfeed.RunResult, storage config.StorageConfig, saved bool) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Harvest completed:")
	fmt.Fprintf(w, "  Run: %s\n", result.RunID)
	fmt.Fprintf(w, "  Articles: %d\n", result.Total())
	fmt.Fprintln(w)

	for _, cat := range result.Categories() {
		fmt.Fprintf(w, "  %-24s %3d articles\n", cat, len(result.Articles(cat)))
	}

	var failed []newsfeed.SourceOutcome
	for _, o := range result.Outcomes {
		if o.Error != "" {
			failed = append(failed, o)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources without articles:")
		for _, o := range failed {
			fmt.Fprintf(w, "  - %s (%s): %s\n", o.Name, o.Category, o.Error)
		}
	}

	if saved {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Reports written to %s (%s)\n", storage.DSN, storageType(storage))
	}
}

// printReportsTable lists stored reports.
func printReportsTable(w io.Writer, reports []newsfeed.CategoryReport) {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No reports stored.")
		return
	}

	fmt.Fprintf(w, "%-24s %-8s %s\n", "CATEGORY", "ARTICLES", "SCRAPED AT")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range reports {
		fmt.Fprintf(w, "%-24s %-8d %s\n", r.Category, r.TotalArticles, r.ScrapedAt.Format("2006-01-02 15:04"))
	}
}

// printReport prints one report's articles.
func printReport(w io.Writer, report *newsfeed.CategoryReport) {
	fmt.Fprintf(w, "%s: %d articles (scraped %s)\n\n", report.Category, report.TotalArticles, report.ScrapedAt.Format("2006-01-02 15:04"))

	for _, a := range report.Articles {
		title := a.Title
		if len(title) > 70 {
			title = title[:67] + "..."
		}

		published := "unknown date"
		if a.PublishedDate != nil {
			published = *a.PublishedDate
		}

		fmt.Fprintf(w, "  %s\n", title)
		fmt.Fprintf(w, "     %s | %s\n", a.Source, published)
		if a.Description != "" {
			fmt.Fprintf(w, "     %s\n", wrapText(a.Description, 72, "     "))
		}
		fmt.Fprintf(w, "     URL: %s\n\n", a.URL)
	}
}

func storageType(s config.StorageConfig) string {
	if s.Type == "" {
		return "file"
	}
	return s.Type
}

// wrapText wraps text to a maximum line width, indenting continuation
// lines.
func wrapText(text string, width int, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}
