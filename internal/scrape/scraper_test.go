package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Banco BV - Cartão de Crédito</title>
<meta name="description" content="Peça seu cartão sem anuidade">
<script>var x = "lixo";</script>
<style>.a { color: red; }</style>
</head>
<body>
<img src="/img/logo-bv.png" alt="Logo BV" class="logo header">
<img src="/img/banner.jpg" alt="Banner promocional">
<a href="/cartoes">Conheça os cartões</a>
<a href="#topo">Voltar ao topo</a>
<p>Cartão de crédito sem anuidade do Banco BV.</p>
</body>
</html>`

func TestParsePage(t *testing.T) {
	page := ParsePage("https://www.bv.com.br/home", samplePage)

	assert.Equal(t, "Banco BV - Cartão de Crédito", page.Title)
	assert.Equal(t, "Peça seu cartão sem anuidade", page.MetaDescription)

	require.Len(t, page.Images, 2)
	assert.Equal(t, "https://www.bv.com.br/img/logo-bv.png", page.Images[0].Src)
	assert.Equal(t, "Logo BV", page.Images[0].Alt)

	require.Len(t, page.Logos, 1)
	assert.Contains(t, page.Logos[0], "logo-bv.png")

	// Fragment-only anchors are dropped.
	require.Len(t, page.Links, 1)
	assert.Equal(t, "https://www.bv.com.br/cartoes", page.Links[0].Href)
	assert.Equal(t, "Conheça os cartões", page.Links[0].Text)

	assert.Contains(t, page.BodyText, "Cartão de crédito sem anuidade")
	assert.NotContains(t, page.BodyText, "lixo")
	assert.True(t, page.RelatedToBV)
}

func TestParsePageUnrelatedSite(t *testing.T) {
	html := `<html><head><title>Loja de Sapatos - Promoção</title></head>
<body><p>Sapatos em promoção</p></body></html>`

	page := ParsePage("https://sapatos.example.com", html)

	assert.False(t, page.RelatedToBV)
	assert.Equal(t, "Loja de Sapatos", page.BrandName())
}

func TestBrandNameFallsBackToDomain(t *testing.T) {
	page := &Page{URL: "https://www.exemplo.com.br/pagina"}

	assert.Equal(t, "exemplo.com.br", page.BrandName())
}

func TestParsePageTruncatesBodyText(t *testing.T) {
	html := "<html><body>" + strings.Repeat("texto ", 5000) + "</body></html>"

	page := ParsePage("https://example.com", html)

	assert.LessOrEqual(t, len(page.BodyText), maxBodyText+3)
	assert.True(t, strings.HasSuffix(page.BodyText, "..."))
}

func TestParsePageTruncatesOnRuneBoundary(t *testing.T) {
	linkText := strings.Repeat("ã", 150)
	html := `<html><body><a href="/promo">` + linkText + `</a>` +
		strings.Repeat("ç", 16000) + `</body></html>`

	page := ParsePage("https://example.com", html)

	require.Len(t, page.Links, 1)
	assert.Equal(t, 100, utf8.RuneCountInString(page.Links[0].Text))
	assert.True(t, utf8.ValidString(page.Links[0].Text))

	assert.True(t, strings.HasSuffix(page.BodyText, "..."))
	assert.Equal(t, maxBodyText+3, utf8.RuneCountInString(page.BodyText))
	assert.True(t, utf8.ValidString(page.BodyText))
}

func TestAnalysisText(t *testing.T) {
	page := ParsePage("https://www.bv.com.br/home", samplePage)

	text := page.AnalysisText()

	assert.Contains(t, text, "=== ANÁLISE COMPLETA DO SITE ===")
	assert.Contains(t, text, "URL: https://www.bv.com.br/home")
	assert.Contains(t, text, "Relacionado ao Banco BV: Sim")
	assert.Contains(t, text, "=== IMAGENS ENCONTRADAS (2) ===")
	assert.Contains(t, text, "=== LOGOS IDENTIFICADOS (1) ===")
	assert.Contains(t, text, "- Banner promocional: https://www.bv.com.br/img/banner.jpg")
	assert.Contains(t, text, "=== CONTEÚDO TEXTUAL ===")
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	page, err := NewPageScraper().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Banco BV - Cartão de Crédito", page.Title)
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewPageScraper().Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://bv.com.br", NormalizeURL("bv.com.br"))
	assert.Equal(t, "http://bv.com.br", NormalizeURL("http://bv.com.br"))
	assert.Equal(t, "https://bv.com.br", NormalizeURL("  https://bv.com.br  "))
}

func TestSplitURLs(t *testing.T) {
	urls := SplitURLs("bv.com.br, https://example.com ,, ")

	assert.Equal(t, []string{"https://bv.com.br", "https://example.com"}, urls)
}
