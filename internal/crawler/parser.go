package crawler

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/ingestcas/internal/hashutil"
	"github.com/nao1215/ingestcas/internal/model"
	"github.com/nao1215/ingestcas/internal/transport"
)

// Parser extracts links and the canonical URL from HTML content.
// A Parser is stateless and safe for concurrent use.
type Parser struct {
	hasher *hashutil.Hasher
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithParserHasher sets the algorithm used for the canonical URL hash.
// The default is SHA-256.
func WithParserHasher(h *hashutil.Hasher) ParserOption {
	return func(p *Parser) {
		if h != nil {
			p.hasher = h
		}
	}
}

// NewParser creates a Parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{hasher: hashutil.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExtractLinksAndCanonical parses content with a default Parser.
func ExtractLinksAndCanonical(content, originalURL string) model.ScrapeResult {
	return NewParser().Extract(content, originalURL)
}

// Extract parses content, which was fetched from originalURL, and returns
// the canonical URL and outgoing links.
//
// Whitespace-only content yields FAILED_NO_HTML and an originalURL that is
// not an absolute http(s) URL yields FAILED_PARSING. Malformed HTML is
// parsed tolerantly and never fails.
func (p *Parser) Extract(content, originalURL string) model.ScrapeResult {
	result := model.ScrapeResult{
		OriginalURL:    originalURL,
		ExtractedLinks: []string{},
	}

	if strings.TrimSpace(content) == "" {
		result.Status = model.StatusFailedNoHTML
		result.ErrorCategory = model.CategoryValidation
		result.ErrorMessage = ErrNoHTML.Error()
		return result
	}

	base, err := transport.ParseHTTPURL(originalURL)
	if err != nil {
		return parseFailure(result, fmt.Errorf("%w: %w", ErrParse, err))
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return parseFailure(result, fmt.Errorf("%w: %w", ErrParse, err))
	}

	canonicalHref, hrefs := collect(doc)

	canonical := originalURL
	if resolved, ok := resolveHTTP(base, canonicalHref); ok {
		canonical = resolved
		result.CanonicalDeclared = true
	}
	result.CanonicalURL = &canonical
	result.CanonicalURLHash = p.hasher.SumString(canonical)
	result.HashAlgorithm = p.hasher.Name()

	seen := make(map[string]struct{}, len(hrefs))
	for _, href := range hrefs {
		if skipHref(href) {
			continue
		}
		resolved, ok := resolveHTTP(base, href)
		if !ok {
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		result.ExtractedLinks = append(result.ExtractedLinks, resolved)
	}
	sort.Strings(result.ExtractedLinks)

	result.Status = model.StatusSuccess
	return result
}

func parseFailure(result model.ScrapeResult, err error) model.ScrapeResult {
	result.Status = model.StatusFailedParsing
	result.ErrorCategory = model.CategoryParse
	result.ErrorMessage = err.Error()
	return result
}

// collect walks the tree once and returns the href of the first canonical
// link element plus the href of every anchor in document order.
func collect(doc *html.Node) (string, []string) {
	var (
		canonical      string
		foundCanonical bool
		hrefs          []string
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if href, ok := getAttr(n, "href"); ok {
					hrefs = append(hrefs, href)
				}
			case "link":
				if !foundCanonical && hasRelToken(n, "canonical") {
					if href, ok := getAttr(n, "href"); ok && strings.TrimSpace(href) != "" {
						canonical = href
						foundCanonical = true
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return canonical, hrefs
}

// skipHref reports references that never produce a crawlable link.
func skipHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "javascript:")
}

// resolveHTTP resolves href against base and accepts only http(s) results.
func resolveHTTP(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}
	return resolved.String(), true
}

// hasRelToken reports whether the rel attribute of n contains token.
// rel is a space-separated, case-insensitive token list.
func hasRelToken(n *html.Node, token string) bool {
	rel, ok := getAttr(n, "rel")
	if !ok {
		return false
	}
	for _, field := range strings.Fields(rel) {
		if strings.EqualFold(field, token) {
			return true
		}
	}
	return false
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
