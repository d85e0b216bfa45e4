package certificates

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Marker attribute the synthesized selectors target.
const editableAttr = "data-editable"

// ID of the synthesized stylesheet block, replaced on re-injection.
const overrideStyleID = "editor-overrides"

// InjectOverlay applies live-editor position/style overrides on top of
// rendered markup without touching the stored template. Elements are located
// by class-token match (the identifier as given, then an underscore-to-hyphen
// normalization); only the first matching element per identifier is tagged.
// Unmatched identifiers are silently ignored: the overlay is best-effort.
func InjectOverlay(markup string, positions []ElementPosition, styles []ElementStyle) (string, error) {
	if len(positions) == 0 && len(styles) == 0 {
		return markup, nil
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse markup: %w", err)
	}

	for _, id := range overrideIDs(positions, styles) {
		if tagFirstMatch(doc, id, id) {
			continue
		}
		if alt := strings.ReplaceAll(id, "_", "-"); alt != id {
			tagFirstMatch(doc, id, alt)
		}
	}

	removeNode(doc, isOverrideStyle)

	styleNode := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
		Attr:     []html.Attribute{{Key: "id", Val: overrideStyleID}},
	}
	styleNode.AppendChild(&html.Node{Type: html.TextNode, Data: buildOverrideCSS(positions, styles)})

	// html.Parse always synthesizes a head element, so the block lands there.
	head := findElement(doc, atom.Head)
	head.AppendChild(styleNode)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to serialize markup: %w", err)
	}
	return buf.String(), nil
}

// overrideIDs collects element identifiers in a stable order, positions first,
// without duplicates.
func overrideIDs(positions []ElementPosition, styles []ElementStyle) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range positions {
		if !seen[p.ElementID] {
			seen[p.ElementID] = true
			ids = append(ids, p.ElementID)
		}
	}
	for _, s := range styles {
		if !seen[s.ElementID] {
			seen[s.ElementID] = true
			ids = append(ids, s.ElementID)
		}
	}
	return ids
}

// tagFirstMatch walks the tree in document order and tags the first element
// whose class list contains classToken. Re-injection finds the marker already
// present and leaves it alone.
func tagFirstMatch(n *html.Node, markerID, classToken string) bool {
	if n.Type == html.ElementNode && hasClassToken(n, classToken) {
		if attrValue(n, editableAttr) == "" {
			n.Attr = append(n.Attr, html.Attribute{Key: editableAttr, Val: markerID})
		}
		return true
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if tagFirstMatch(child, markerID, classToken) {
			return true
		}
	}
	return false
}

func hasClassToken(n *html.Node, token string) bool {
	for _, field := range strings.Fields(attrValue(n, "class")) {
		if field == token {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func isOverrideStyle(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Style && attrValue(n, "id") == overrideStyleID
}

func removeNode(n *html.Node, match func(*html.Node) bool) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if match(child) {
			n.RemoveChild(child)
		} else {
			removeNode(child, match)
		}
		child = next
	}
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, a); found != nil {
			return found
		}
	}
	return nil
}

// buildOverrideCSS synthesizes one selector rule per override. Position
// overrides force absolute positioning; style overrides emit only the
// properties the editor actually set. Everything is marked !important so the
// overlay wins over template-declared styles.
func buildOverrideCSS(positions []ElementPosition, styles []ElementStyle) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, pos := range positions {
		fmt.Fprintf(&b, "[%s=%q] { position: absolute !important; left: %gpx !important; top: %gpx !important; }\n",
			editableAttr, pos.ElementID, pos.X, pos.Y)
	}
	for _, style := range styles {
		var rules []string
		if style.FontSize != "" {
			rules = append(rules, "font-size: "+style.FontSize+" !important")
		}
		if style.Color != "" {
			rules = append(rules, "color: "+style.Color+" !important")
		}
		if style.FontWeight != "" {
			rules = append(rules, "font-weight: "+style.FontWeight+" !important")
		}
		if style.TextAlign != "" {
			rules = append(rules, "text-align: "+style.TextAlign+" !important")
		}
		if len(rules) > 0 {
			fmt.Fprintf(&b, "[%s=%q] { %s; }\n", editableAttr, style.ElementID, strings.Join(rules, "; "))
		}
	}
	return b.String()
}
