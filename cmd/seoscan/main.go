// Package main provides the entry point for the seoscan CLI.
//
// seoscan is a technical SEO auditing tool. It crawls a site one page
// at a time, persists every page as a JSON artifact, and evaluates a
// fixed SEO rule set over the crawl results.
//
// Usage:
//
//	seoscan init <slug> <base-url>
//	seoscan run <slug>
//	seoscan report <slug>
//
// See --help for all available options.
package main

// main is the entry point for seoscan.
func main() {
	Execute()
}
