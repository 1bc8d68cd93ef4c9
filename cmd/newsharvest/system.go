package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pevans/newsharvest/config"
)

func handleInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing settings file")
	fs.Parse(args)

	configPath, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	created, err := config.WriteDefaultConfigFile(*force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  ✗ Failed to create settings file: %v\n", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("  ✓ Settings file: %s\n", configPath)
	} else {
		fmt.Printf("  Settings file: %s (already exists, use -force to overwrite)\n", configPath)
	}
}

// handleReports shows stored reports: a table of all categories, or one
// category's articles with -category.
func handleReports(args []string) int {
	fs := flag.NewFlagSet("reports", flag.ExitOnError)
	settingsFile := fs.String("settings", "", "Settings file")
	output := fs.String("output", "", "Report directory or database")
	category := fs.String("category", "", "Show this category's articles")
	fs.Parse(args)

	cfg := loadSettings(*settingsFile)
	if *output != "" {
		cfg.Storage.DSN = *output
	}

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open report storage: %v\n", err)
		return 1
	}
	defer closeStore()

	if *category != "" {
		report, err := store.Get(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read report: %v\n", err)
			return 1
		}
		if report == nil {
			fmt.Fprintf(os.Stderr, "Error: no report for category %q\n", *category)
			return 1
		}
		printReport(os.Stdout, report)
		return 0
	}

	result, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list reports: %v\n", err)
		return 1
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", e.Error())
	}
	printReportsTable(os.Stdout, result.Reports)
	return 0
}
