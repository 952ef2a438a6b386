package services

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// documentPolicy allows only the structural tags the AI is instructed to
// emit. Everything else (scripts, styles, event handlers) is stripped
// before the content reaches the print pipeline.
var documentPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h1", "h2", "h3", "p", "ul", "ol", "li", "strong", "em", "br", "table", "thead", "tbody", "tr", "th", "td")
	return p
}()

// SanitizeDocumentHTML strips unsafe markup from AI-generated or
// admin-edited document bodies.
func SanitizeDocumentHTML(content string) string {
	return documentPolicy.Sanitize(content)
}

// WrapDocumentForPDF wraps a sanitized document body with the letterhead
// and print styles used for every strategy-pack artifact.
func WrapDocumentForPDF(title, caseNumber, bodyHTML string) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>
body { font-family: Georgia, 'Times New Roman', serif; font-size: 12pt; line-height: 1.5; color: #1a1a1a; }
h1 { font-size: 16pt; border-bottom: 2px solid #1a1a1a; padding-bottom: 8px; }
h2 { font-size: 13pt; margin-top: 24px; }
.letterhead { text-align: right; font-size: 9pt; color: #555; margin-bottom: 32px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 6px; text-align: left; }
</style></head><body>`)
	sb.WriteString(fmt.Sprintf(`<div class="letterhead">TradieShield<br>Case %s<br>%s</div>`,
		caseNumber, time.Now().Format("2 January 2006")))
	// Titles are plain text; markup in them must not reach the print pipeline
	sb.WriteString(fmt.Sprintf("<h1>%s</h1>", html.EscapeString(title)))
	sb.WriteString(SanitizeDocumentHTML(bodyHTML))
	sb.WriteString("</body></html>")
	return sb.String()
}

// RenderDocumentPDF sanitizes, wraps and prints a document body to PDF
func RenderDocumentPDF(title, caseNumber, bodyHTML string) ([]byte, error) {
	fullHTML := WrapDocumentForPDF(title, caseNumber, bodyHTML)
	return GeneratePDF(fullHTML, DefaultPDFOptions())
}
