package classify

import (
	"encoding/json"
	"math"

	"github.com/v0xg/uxspec/internal/design"
)

// ElementType distinguishes interactive elements
type ElementType string

const (
	ElementButton ElementType = "button"
	ElementInput  ElementType = "input"
)

// Position is a point in document coordinates
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TextStyle holds the raw font attributes of a text node
type TextStyle struct {
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight float64 `json:"fontWeight,omitempty"`
}

// TextElement is a text node found while walking a screen
type TextElement struct {
	Content string    `json:"content"`
	Level   int       `json:"level"`
	Style   TextStyle `json:"style"`
	Role    TextRole  `json:"role"`
}

// InteractiveElement is a node classified as a button or input
type InteractiveElement struct {
	Type     ElementType `json:"type"`
	Label    string      `json:"label"`
	Position Position    `json:"position"`
}

// FormSummary describes whether a screen looks like a form. Only IsForm is
// set when it does not.
type FormSummary struct {
	IsForm        bool                 `json:"is_form"`
	FieldCount    int                  `json:"field_count,omitempty"`
	Fields        []string             `json:"fields,omitempty"`
	SubmitButtons []InteractiveElement `json:"submit_buttons"`
}

// MarshalJSON writes a bare {"is_form":false} for non-forms. Forms always
// carry every field, submit_buttons included when empty.
func (f FormSummary) MarshalJSON() ([]byte, error) {
	if !f.IsForm {
		return []byte(`{"is_form":false}`), nil
	}
	type form FormSummary
	out := form(f)
	if out.SubmitButtons == nil {
		out.SubmitButtons = []InteractiveElement{}
	}
	return json.Marshal(out)
}

// NavigationElement is a nested node that navigates to another screen
type NavigationElement struct {
	Label         string `json:"label"`
	DestinationID string `json:"destination_id"`
	Trigger       string `json:"trigger"`
}

// DataDisplay is a container of repeated, same-sized items
type DataDisplay struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"` // list, row, grid
	ItemCount int    `json:"item_count"`
}

// ContentAnalysis is the classification of one screen
type ContentAnalysis struct {
	TextHierarchy       []TextElement        `json:"text_hierarchy"`
	InteractiveElements []InteractiveElement `json:"interactive_elements"`
	FormFields          FormSummary          `json:"form_fields"`
	NavigationElements  []NavigationElement  `json:"navigation_elements"`
	DataDisplays        []DataDisplay        `json:"data_displays"`
}

// DefaultTrigger is used for reactions without an explicit trigger
const DefaultTrigger = "CLICK"

// minRepeatedItems is the child count from which a container counts as a data display
const minRepeatedItems = 3

// Analyze classifies every node under screen, including screen itself.
// It fails only when the tree cannot be walked.
func Analyze(screen *design.Node) (ContentAnalysis, error) {
	a := ContentAnalysis{
		TextHierarchy:       []TextElement{},
		InteractiveElements: []InteractiveElement{},
		NavigationElements:  []NavigationElement{},
		DataDisplays:        []DataDisplay{},
	}

	err := design.Walk(screen, func(n *design.Node, depth int) {
		if n.Kind == design.KindText {
			a.TextHierarchy = append(a.TextHierarchy, TextElement{
				Content: n.Characters,
				Level:   depth,
				Style:   TextStyle{FontSize: n.FontSize, FontWeight: n.FontWeight},
				Role:    InferTextRole(n),
			})
		}

		switch n.Kind {
		case design.KindFrame, design.KindRectangle:
			if LooksLikeButton(n) {
				a.InteractiveElements = append(a.InteractiveElements, InteractiveElement{
					Type:     ElementButton,
					Label:    ElementLabel(n),
					Position: Position{X: n.X, Y: n.Y},
				})
			}
		}
		if LooksLikeInput(n) {
			a.InteractiveElements = append(a.InteractiveElements, InteractiveElement{
				Type:     ElementInput,
				Label:    AssociatedLabel(n),
				Position: Position{X: n.X, Y: n.Y},
			})
		}

		if depth == 0 {
			return
		}
		for _, r := range n.Reactions {
			if r.Action.Type != "NAVIGATE" {
				continue
			}
			trigger := r.Trigger
			if trigger == "" {
				trigger = DefaultTrigger
			}
			a.NavigationElements = append(a.NavigationElements, NavigationElement{
				Label:         ElementLabel(n),
				DestinationID: r.Action.DestinationID,
				Trigger:       trigger,
			})
		}
		if d, ok := dataDisplay(n); ok {
			a.DataDisplays = append(a.DataDisplays, d)
		}
	})
	if err != nil {
		return ContentAnalysis{}, err
	}

	a.FormFields = DetectForm(a.InteractiveElements)
	return a, nil
}

// DetectForm flags a form when more than one input was found
func DetectForm(elements []InteractiveElement) FormSummary {
	var fields []string
	for _, el := range elements {
		if el.Type == ElementInput {
			fields = append(fields, el.Label)
		}
	}
	if len(fields) <= 1 {
		return FormSummary{IsForm: false}
	}

	buttons := []InteractiveElement{}
	for _, el := range elements {
		if el.Type == ElementButton {
			buttons = append(buttons, el)
		}
	}
	return FormSummary{
		IsForm:        true,
		FieldCount:    len(fields),
		Fields:        fields,
		SubmitButtons: buttons,
	}
}

func dataDisplay(n *design.Node) (DataDisplay, bool) {
	switch n.Kind {
	case design.KindFrame, design.KindGroup, design.KindInstance, design.KindComponent, design.KindSection:
	default:
		return DataDisplay{}, false
	}
	if len(n.Children) < minRepeatedItems {
		return DataDisplay{}, false
	}

	first := n.Children[0]
	if first == nil {
		return DataDisplay{}, false
	}
	sameX, sameY := true, true
	for _, c := range n.Children[1:] {
		if c == nil || c.Kind != first.Kind ||
			!near(c.Width, first.Width) || !near(c.Height, first.Height) {
			return DataDisplay{}, false
		}
		sameX = sameX && near(c.X, first.X)
		sameY = sameY && near(c.Y, first.Y)
	}

	kind := "grid"
	switch {
	case sameX:
		kind = "list"
	case sameY:
		kind = "row"
	}
	return DataDisplay{Name: n.Name, Kind: kind, ItemCount: len(n.Children)}, true
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1
}
