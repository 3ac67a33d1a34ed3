package webpage

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const sampleHTML = `<html>
<head><title>Sample Page</title><script>var x = 1;</script></head>
<body>
<nav>Home | About | Contact</nav>
<main>
<h1>Main Heading</h1>
<p>This is the article body with enough text to pass the minimum length
threshold used when selecting the primary content container of a page.</p>
</main>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestExtractReadableText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleHTML))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	text := ExtractReadableText(doc.Selection)
	if !strings.Contains(text, "Main Heading") || !strings.Contains(text, "article body") {
		t.Fatalf("main content missing: %q", text)
	}
	for _, unwanted := range []string{"var x = 1", "Home | About", "Copyright"} {
		if strings.Contains(text, unwanted) {
			t.Fatalf("chrome not removed, found %q in %q", unwanted, text)
		}
	}
}

func TestExtractReadableTextThinPageFallsBack(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><p>short page</p></body></html>`))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if got := ExtractReadableText(doc.Selection); got != "short page" {
		t.Fatalf("fallback text = %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	got := collapseWhitespace("  a   b \n\n\n c\td \n")
	if got != "a b\nc d" {
		t.Fatalf("collapseWhitespace = %q", got)
	}
}
