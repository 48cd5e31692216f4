// Package main provides the entry point for the catalogscan CLI.
//
// catalogscan scrapes product catalogs classified under two taxonomies
// (product type and usage), reconciles them into one canonical table and
// keeps a history of every run.
//
// Usage:
//
//	catalogscan scan herbal
//	catalogscan process herbal --type herbal_type_raw.csv --usage herbal_usage_raw.csv
//	catalogscan compare herbal
//
// See --help for all available options.
package main

func main() {
	Execute()
}
