package design

import (
	"fmt"
	"strings"
)

// Kind is the closed set of node types a design document can contain
type Kind uint8

const (
	KindUnknown Kind = iota
	KindDocument
	KindCanvas
	KindFrame
	KindGroup
	KindSection
	KindComponent
	KindComponentSet
	KindInstance
	KindText
	KindRectangle
	KindEllipse
	KindLine
	KindVector
	KindPolygon
	KindStar
	KindBooleanOperation
	KindSlice
)

var kindNames = [...]string{
	KindUnknown:          "UNKNOWN",
	KindDocument:         "DOCUMENT",
	KindCanvas:           "CANVAS",
	KindFrame:            "FRAME",
	KindGroup:            "GROUP",
	KindSection:          "SECTION",
	KindComponent:        "COMPONENT",
	KindComponentSet:     "COMPONENT_SET",
	KindInstance:         "INSTANCE",
	KindText:             "TEXT",
	KindRectangle:        "RECTANGLE",
	KindEllipse:          "ELLIPSE",
	KindLine:             "LINE",
	KindVector:           "VECTOR",
	KindPolygon:          "REGULAR_POLYGON",
	KindStar:             "STAR",
	KindBooleanOperation: "BOOLEAN_OPERATION",
	KindSlice:            "SLICE",
}

// ParseKind maps a type tag to its Kind. Unrecognised tags map to KindUnknown.
func ParseKind(s string) Kind {
	s = strings.ToUpper(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k)
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MarshalText encodes the kind as its type tag
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a type tag
func (k *Kind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// Paint is a fill or stroke applied to a node
type Paint struct {
	Type    string  `json:"type"`
	Visible *bool   `json:"visible,omitempty"`
	Opacity float64 `json:"opacity,omitempty"`
	Color   *Color  `json:"color,omitempty"`
}

// Color is an RGBA color with channels in [0,1]
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Action is what a reaction does when triggered
type Action struct {
	Type          string `json:"type"`
	DestinationID string `json:"destinationId,omitempty"`
	Transition    string `json:"transition,omitempty"`
}

// Reaction pairs an interaction trigger with an action
type Reaction struct {
	Trigger string `json:"trigger,omitempty"`
	Action  Action `json:"action"`
}

// Node is a read-only element of the design tree. Numeric style attributes
// are zero when the source document omits them.
type Node struct {
	ID           string
	Name         string
	Kind         Kind
	X            float64
	Y            float64
	Width        float64
	Height       float64
	Characters   string
	FontSize     float64
	FontWeight   float64
	CornerRadius float64
	Fills        []Paint
	Strokes      []Paint
	Children     []*Node
	Reactions    []Reaction
}

// Page is a canvas holding top-level nodes
type Page struct {
	ID       string
	Name     string
	Children []*Node
}

// Document is a whole design file
type Document struct {
	ID           string
	Name         string
	FileKey      string
	LastModified string
	Pages        []*Page
}

// Page returns the page with the given name, or nil
func (d *Document) Page(name string) *Page {
	for _, p := range d.Pages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// FindNode searches every page for the node with the given id
func (d *Document) FindNode(id string) (*Node, *Page) {
	for _, p := range d.Pages {
		for _, top := range p.Children {
			var found *Node
			_ = Walk(top, func(n *Node, _ int) {
				if found == nil && n.ID == id {
					found = n
				}
			})
			if found != nil {
				return found, p
			}
		}
	}
	return nil, nil
}
