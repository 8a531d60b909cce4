// Package classify infers the semantic role of design nodes from their
// geometry and style. Thresholds are empirical and intentionally literal.
package classify

import (
	"strings"

	"github.com/v0xg/uxspec/internal/design"
)

// TextRole is the inferred role of a text node
type TextRole string

const (
	RoleTitle    TextRole = "title"
	RoleSubtitle TextRole = "subtitle"
	RoleLabel    TextRole = "label"
	RoleBody     TextRole = "body"
)

// PageType is the inferred purpose of a page
type PageType string

const (
	PageAuthentication PageType = "authentication"
	PageAdministration PageType = "administration"
	PageMain           PageType = "main"
	PageFeature        PageType = "feature"
)

const (
	defaultFontSize   = 14
	defaultFontWeight = 400
)

// IsMainScreen reports whether a top-level node is a UI screen
func IsMainScreen(n *design.Node) bool {
	switch n.Kind {
	case design.KindFrame:
		return n.Width > 200 &&
			n.Height > 200 &&
			!strings.Contains(strings.ToLower(n.Name), "component")
	default:
		return false
	}
}

// LooksLikeButton reports a rounded, filled node of button size
func LooksLikeButton(n *design.Node) bool {
	return n.CornerRadius > 0 &&
		len(n.Fills) > 0 &&
		n.Width > 60 && n.Height > 20
}

// LooksLikeInput reports a stroked box of text-field proportions
func LooksLikeInput(n *design.Node) bool {
	switch n.Kind {
	case design.KindRectangle, design.KindFrame:
		return len(n.Strokes) > 0 &&
			n.Width > 100 &&
			n.Height > 30 && n.Height < 60
	default:
		return false
	}
}

// InferTextRole classifies a text node by font size, then weight
func InferTextRole(n *design.Node) TextRole {
	return TextRoleFor(n.FontSize, n.FontWeight)
}

// TextRoleFor applies the text role thresholds. Zero values mean absent.
func TextRoleFor(fontSize, fontWeight float64) TextRole {
	if fontSize == 0 {
		fontSize = defaultFontSize
	}
	if fontWeight == 0 {
		fontWeight = defaultFontWeight
	}
	switch {
	case fontSize > 24:
		return RoleTitle
	case fontSize > 18:
		return RoleSubtitle
	case fontWeight > 500:
		return RoleLabel
	default:
		return RoleBody
	}
}

// InferPageType matches page names by keyword; first match wins
func InferPageType(pageName string) PageType {
	name := strings.ToLower(pageName)
	switch {
	case strings.Contains(name, "auth") || strings.Contains(name, "login"):
		return PageAuthentication
	case strings.Contains(name, "admin") || strings.Contains(name, "settings"):
		return PageAdministration
	case strings.Contains(name, "main") || strings.Contains(name, "home"):
		return PageMain
	default:
		return PageFeature
	}
}

// ElementLabel returns the text of the first TEXT child, preferring direct
// children over nested ones, and falls back to the node name.
func ElementLabel(n *design.Node) string {
	for _, c := range n.Children {
		if c != nil && c.Kind == design.KindText {
			return c.Characters
		}
	}
	var label string
	found := false
	for _, c := range n.Children {
		if c == nil || found {
			continue
		}
		_ = design.Walk(c, func(d *design.Node, _ int) {
			if !found && d.Kind == design.KindText {
				label, found = d.Characters, true
			}
		})
	}
	if found {
		return label
	}
	return n.Name
}

// AssociatedLabel names an input field
func AssociatedLabel(n *design.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return "Input"
}
