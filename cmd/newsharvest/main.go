package main

import (
	"fmt"
	"os"
)

func main() {
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "init":
			handleInit(args[1:])
			return
		case "reports":
			os.Exit(handleReports(args[1:]))
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	os.Exit(handleHarvest(args))
}

func printUsage() {
	fmt.Println("newsharvest - Collect recent news articles by category")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  newsharvest [flags]            Run a harvest")
	fmt.Println("  newsharvest init [-force]      Write the default settings file")
	fmt.Println("  newsharvest reports [flags]    Show stored reports")
	fmt.Println()
	fmt.Println("Harvest flags:")
	fmt.Println("  -config FILE        Categories file (default: categories_config.json)")
	fmt.Println("  -settings FILE      Settings file (default: ~/.newsharvest/config.yaml)")
	fmt.Println("  -category NAME      Only harvest this category (repeatable)")
	fmt.Println("  -list-categories    List configured categories and exit")
	fmt.Println("  -max-articles N     Articles per source (default: 8)")
	fmt.Println("  -output DIR         Report directory or database (default: news_by_category)")
	fmt.Println("  -stdout             Also print the aggregate JSON document to stdout")
	fmt.Println("  -no-save            Do not write reports")
	fmt.Println("  -builtin            Add the built-in sources to the configured categories")
	fmt.Println("  -all                Disable the AI-only filter for technology categories")
	fmt.Println()
	fmt.Println("Exit status: 0 when articles were found, 2 when none were, 1 on error.")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  NEWSHARVEST_CATEGORIES_FILE  Categories file")
	fmt.Println("  NEWSHARVEST_MAX_ARTICLES     Articles per source")
	fmt.Println("  NEWSHARVEST_AI_ONLY          Apply the AI-only filter (true/false)")
	fmt.Println("  NEWSHARVEST_STORAGE_TYPE     Report storage: file or sqlite")
	fmt.Println("  NEWSHARVEST_STORAGE_DSN      Report directory or database path")
	fmt.Println("  NEWSHARVEST_LOG_LEVEL        debug, info, warn or error")
}
