// Package crawler fetches web pages and extracts their links and canonical
// URL.
//
// # Components
//
//   - Fetcher: downloads a page through a transport client, bounds the body
//     size and decodes it to UTF-8 using the declared or sniffed charset
//   - Parser: walks the HTML tree with golang.org/x/net/html and returns a
//     model.ScrapeResult
//
// # Canonical URL
//
// The first <link rel="canonical" href> is resolved against the page URL and
// accepted only when it is an http or https URL. When the page declares no
// usable canonical link the original URL is used instead and
// ScrapeResult.CanonicalDeclared is false. Either way the hash of the chosen
// URL is attached.
//
// # Links
//
// Every <a href> is collected except fragment-only, mailto: and javascript:
// references. Links are resolved against the page URL, restricted to http and
// https, deduplicated and sorted. Fragments are kept as written.
//
// # Usage
//
//	fetcher := crawler.NewFetcher(client, crawler.WithMaxBodySize(5<<20))
//	result := fetcher.Scrape(ctx, "https://example.com/")
package crawler
