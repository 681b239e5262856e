// Package scrape fetches marketing pages and distills them into the
// structured text block the URL-analysis endpoint sends to the model.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const maxBodyText = 15000

var bvKeywords = []string{
	"banco bv", "bv financeira", "bv.com.br", "bancobv", "bv bank", "bv crédito",
}

// Image is one <img> found on the page.
type Image struct {
	Src string
	Alt string
}

// Link is one anchor found on the page.
type Link struct {
	Href string
	Text string
}

// Page is the distilled content of one fetched URL.
type Page struct {
	URL             string
	Title           string
	MetaDescription string
	Images          []Image
	Links           []Link
	Logos           []string
	BodyText        string
	RelatedToBV     bool
}

// PageScraper fetches HTML via net/http and extracts the page elements the
// compliance prompt cares about.
type PageScraper struct {
	client *http.Client
}

// NewPageScraper creates a PageScraper with sensible defaults.
func NewPageScraper() *PageScraper {
	return &PageScraper{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// NormalizeURL prepends https:// when the scheme is missing.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}

// SplitURLs parses a comma-separated URL list, normalizing each entry.
func SplitURLs(input string) []string {
	var urls []string
	for _, part := range strings.Split(input, ",") {
		if u := NormalizeURL(part); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// Fetch downloads a page and extracts its title, description, images,
// links, logos, and plain text, flagging whether the content relates to
// the bank.
func (s *PageScraper) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "scrape: fetch %s", pageURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("scrape: %s returned status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}

	return ParsePage(pageURL, string(body)), nil
}

var (
	titleRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaDescRe = regexp.MustCompile(`(?is)<meta[^>]*name=["']description["'][^>]*content=["']([^"']*)["']`)
	imgRe      = regexp.MustCompile(`(?is)<img[^>]*>`)
	anchorRe   = regexp.MustCompile(`(?is)<a[^>]*href=["']([^"']+)["'][^>]*>(.*?)</a>`)
	attrSrcRe  = regexp.MustCompile(`(?i)src=["']([^"']*)["']`)
	attrAltRe  = regexp.MustCompile(`(?i)alt=["']([^"']*)["']`)
	attrClsRe  = regexp.MustCompile(`(?i)class=["']([^"']*)["']`)
)

// ParsePage extracts page elements from raw HTML. Split from Fetch so tests
// and the text endpoint can reuse it without a network round trip.
func ParsePage(pageURL, html string) *Page {
	page := &Page{URL: pageURL}

	if m := titleRe.FindStringSubmatch(html); m != nil {
		page.Title = strings.TrimSpace(m[1])
	}
	if m := metaDescRe.FindStringSubmatch(html); m != nil {
		page.MetaDescription = strings.TrimSpace(m[1])
	}

	for _, tag := range imgRe.FindAllString(html, -1) {
		src := firstMatch(attrSrcRe, tag)
		if src == "" {
			continue
		}
		full := resolveURL(pageURL, src)
		alt := firstMatch(attrAltRe, tag)
		page.Images = append(page.Images, Image{Src: full, Alt: alt})

		class := firstMatch(attrClsRe, tag)
		haystack := strings.ToLower(src + " " + alt + " " + class)
		if strings.Contains(haystack, "logo") {
			page.Logos = append(page.Logos, full)
		}
	}

	for _, m := range anchorRe.FindAllStringSubmatch(html, -1) {
		href := m[1]
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		text := truncateRunes(stripHTML(m[2]), 100)
		page.Links = append(page.Links, Link{Href: resolveURL(pageURL, href), Text: text})
	}

	page.BodyText = stripHTML(html)
	if body := truncateRunes(page.BodyText, maxBodyText); body != page.BodyText {
		page.BodyText = body + "..."
	}

	page.RelatedToBV = detectBVRelation(pageURL, html, page)
	return page
}

// detectBVRelation checks the URL, page content, and logos for signs the
// page belongs to the bank. Unrelated pages short-circuit to out-of-scope
// without burning a model call on classification.
func detectBVRelation(pageURL, html string, page *Page) bool {
	lowerURL := strings.ToLower(pageURL)
	if strings.Contains(lowerURL, "bv.com.br") || strings.Contains(lowerURL, "bancobv") {
		return true
	}

	content := strings.ToLower(html + page.Title + page.MetaDescription)
	for _, kw := range bvKeywords {
		if strings.Contains(content, kw) {
			return true
		}
	}

	for _, logo := range page.Logos {
		if strings.Contains(strings.ToLower(logo), "bv") {
			return true
		}
	}
	return false
}

// BrandName guesses the page's brand: the first title segment, falling back
// to the bare domain.
func (p *Page) BrandName() string {
	if p.Title != "" {
		return strings.TrimSpace(strings.SplitN(p.Title, "-", 2)[0])
	}
	if u, err := url.Parse(p.URL); err == nil {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	return p.URL
}

// AnalysisText renders the structured block the model receives for one page.
func (p *Page) AnalysisText() string {
	related := "Não"
	if p.RelatedToBV {
		related = "Sim"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `
=== ANÁLISE COMPLETA DO SITE ===
URL: %s
Título: %s
Descrição: %s
Relacionado ao Banco BV: %s

=== IMAGENS ENCONTRADAS (%d) ===
`, p.URL, p.Title, p.MetaDescription, related, len(p.Images))

	for _, img := range limitImages(p.Images, 20) {
		alt := img.Alt
		if alt == "" {
			alt = "Sem descrição"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", alt, img.Src)
	}

	fmt.Fprintf(&sb, "\n=== LOGOS IDENTIFICADOS (%d) ===\n", len(p.Logos))
	for _, logo := range limitStrings(p.Logos, 10) {
		fmt.Fprintf(&sb, "- %s\n", logo)
	}

	fmt.Fprintf(&sb, "\n=== LINKS DO SITE (%d) ===\n", len(p.Links))
	for _, link := range limitLinks(p.Links, 30) {
		fmt.Fprintf(&sb, "- %s: %s\n", link.Text, link.Href)
	}

	fmt.Fprintf(&sb, "\n=== CONTEÚDO TEXTUAL ===\n%s\n", p.BodyText)
	return sb.String()
}

func firstMatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// stripHTML removes script/style blocks, strips tags, decodes common
// entities, and collapses whitespace.
func stripHTML(html string) string {
	for _, tag := range []string{"script", "style"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	tagRe := regexp.MustCompile(`<[^>]+>`)
	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	nlRe := regexp.MustCompile(`\n{3,}`)
	html = nlRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}

func limitImages(in []Image, n int) []Image {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func limitLinks(in []Link, n int) []Link {
	if len(in) > n {
		return in[:n]
	}
	return in
}

func limitStrings(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}

// truncateRunes cuts s to at most n runes, never mid-sequence.
func truncateRunes(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n])
	}
	return s
}
