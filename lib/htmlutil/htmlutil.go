package htmlutil

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("gramwatch.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

func NormalizeText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// GetMetaProperties collects <meta property=... content=...> (and name=...
// variants) from the document head into a flat map. later duplicates are
// ignored, matching how social-card consumers read them.
func GetMetaProperties(ctx context.Context, doc *goquery.Document) map[string]string {
	ctx, span := tracer.Start(ctx, "GetMetaProperties")
	defer span.End()

	props := map[string]string{}
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		key, exists := sel.Attr("property")
		if !exists {
			key, exists = sel.Attr("name")
		}
		if !exists || key == "" {
			return
		}
		content, exists := sel.Attr("content")
		if !exists {
			return
		}
		if _, seen := props[key]; seen {
			return
		}
		props[key] = content
		span.AddEvent("meta", trace.WithAttributes(
			attribute.String("property", key),
			attribute.String("content", content),
		))
	})

	return props
}
