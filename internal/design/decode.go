package design

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// fileJSON mirrors the response of the Figma REST endpoint GET /v1/files/:key
type fileJSON struct {
	Name         string    `json:"name"`
	LastModified string    `json:"lastModified"`
	Document     *nodeJSON `json:"document"`
}

type boxJSON struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type styleJSON struct {
	FontSize   float64 `json:"fontSize"`
	FontWeight float64 `json:"fontWeight"`
}

type triggerJSON struct {
	Type string `json:"type"`
}

type transitionJSON struct {
	Type string `json:"type"`
}

type actionJSON struct {
	Type          string          `json:"type"`
	DestinationID string          `json:"destinationId"`
	Navigation    string          `json:"navigation"`
	Transition    *transitionJSON `json:"transition"`
}

type reactionJSON struct {
	Trigger *triggerJSON  `json:"trigger"`
	Action  *actionJSON   `json:"action"`
	Actions []*actionJSON `json:"actions"`
}

// nodeJSON accepts both the REST layout (absoluteBoundingBox, style) and the
// flat layout produced by plugin exports (x, y, width, height, fontSize).
type nodeJSON struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	AbsoluteBoundingBox *boxJSON        `json:"absoluteBoundingBox"`
	X                   float64         `json:"x"`
	Y                   float64         `json:"y"`
	Width               float64         `json:"width"`
	Height              float64         `json:"height"`
	Characters          string          `json:"characters"`
	Style               *styleJSON      `json:"style"`
	FontSize            float64         `json:"fontSize"`
	FontWeight          float64         `json:"fontWeight"`
	CornerRadius        float64         `json:"cornerRadius"`
	Fills               []Paint         `json:"fills"`
	Strokes             []Paint         `json:"strokes"`
	Children            []*nodeJSON     `json:"children"`
	Reactions           []*reactionJSON `json:"reactions"`
}

// DecodeFile reads a Figma file document. fileKey is recorded on the
// returned Document and may be empty for local exports.
func DecodeFile(r io.Reader, fileKey string) (*Document, error) {
	var f fileJSON
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode design file: %w", err)
	}
	if f.Document == nil {
		return nil, fmt.Errorf("design file has no document node")
	}

	doc := &Document{
		ID:           f.Document.ID,
		Name:         f.Name,
		FileKey:      fileKey,
		LastModified: f.LastModified,
	}
	if doc.Name == "" {
		doc.Name = f.Document.Name
	}

	for _, c := range f.Document.Children {
		if c == nil || ParseKind(c.Type) != KindCanvas {
			continue
		}
		page := &Page{ID: c.ID, Name: c.Name}
		for _, child := range c.Children {
			if child != nil {
				page.Children = append(page.Children, child.toNode())
			}
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

// LoadFile reads a Figma file document from disk
func LoadFile(path, fileKey string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeFile(f, fileKey)
}

// DecodeNode reads a single node subtree
func DecodeNode(r io.Reader) (*Node, error) {
	var n nodeJSON
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("failed to decode node: %w", err)
	}
	return n.toNode(), nil
}

func (j *nodeJSON) toNode() *Node {
	n := &Node{
		ID:           j.ID,
		Name:         j.Name,
		Kind:         ParseKind(j.Type),
		X:            j.X,
		Y:            j.Y,
		Width:        j.Width,
		Height:       j.Height,
		Characters:   j.Characters,
		FontSize:     j.FontSize,
		FontWeight:   j.FontWeight,
		CornerRadius: j.CornerRadius,
		Fills:        j.Fills,
		Strokes:      j.Strokes,
	}
	if b := j.AbsoluteBoundingBox; b != nil {
		n.X, n.Y, n.Width, n.Height = b.X, b.Y, b.Width, b.Height
	}
	if s := j.Style; s != nil {
		n.FontSize, n.FontWeight = s.FontSize, s.FontWeight
	}
	for _, r := range j.Reactions {
		if r == nil {
			continue
		}
		n.Reactions = append(n.Reactions, r.toReactions()...)
	}
	for _, c := range j.Children {
		if c != nil {
			n.Children = append(n.Children, c.toNode())
		}
	}
	return n
}

func (r *reactionJSON) toReactions() []Reaction {
	var trigger string
	if r.Trigger != nil {
		trigger = r.Trigger.Type
	}
	actions := r.Actions
	if len(actions) == 0 && r.Action != nil {
		actions = []*actionJSON{r.Action}
	}
	out := make([]Reaction, 0, len(actions))
	for _, a := range actions {
		if a == nil {
			continue
		}
		act := Action{Type: a.Type, DestinationID: a.DestinationID}
		// The REST API encodes navigation as a NODE action with a navigation mode.
		if a.Type == "NODE" && a.Navigation == "NAVIGATE" {
			act.Type = "NAVIGATE"
		}
		if a.Transition != nil {
			act.Transition = a.Transition.Type
		}
		out = append(out, Reaction{Trigger: trigger, Action: act})
	}
	return out
}
