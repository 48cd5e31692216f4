// Package config provides configuration structures and utilities for catalogscan.
// It defines the run options set from CLI flags and the YAML catalog file that
// describes which category listings to scrape and how to reconcile them.
package config
