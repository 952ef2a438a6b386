package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeDocumentHTMLStripsUnsafeMarkup(t *testing.T) {
	dirty := `<h2>Demand</h2><script>alert('x')</script><p onclick="steal()">Pay the invoice <strong>now</strong>.</p><style>body{display:none}</style>`

	clean := SanitizeDocumentHTML(dirty)

	assert.Contains(t, clean, "<h2>Demand</h2>")
	assert.Contains(t, clean, "<strong>now</strong>")
	assert.NotContains(t, clean, "<script")
	assert.NotContains(t, clean, "onclick")
	assert.NotContains(t, clean, "<style")
}

func TestSanitizeDocumentHTMLKeepsTables(t *testing.T) {
	table := `<table><thead><tr><th>Invoice</th></tr></thead><tbody><tr><td>INV-042</td></tr></tbody></table>`

	assert.Equal(t, table, SanitizeDocumentHTML(table))
}

func TestWrapDocumentForPDF(t *testing.T) {
	html := WrapDocumentForPDF("Letter of Demand", "TS-2026-00007", "<p>Body</p><script>x()</script>")

	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "Case TS-2026-00007")
	assert.Contains(t, html, "<h1>Letter of Demand</h1>")
	assert.Contains(t, html, "<p>Body</p>")
	assert.NotContains(t, html, "<script")
}

func TestWrapDocumentForPDFEscapesTitle(t *testing.T) {
	out := WrapDocumentForPDF(`<img src=x onerror=steal()>`, "TS-2026-00007", "<p>Body</p>")

	assert.NotContains(t, out, "<img")
	assert.Contains(t, out, "<h1>&lt;img src=x onerror=steal()&gt;</h1>")
}
