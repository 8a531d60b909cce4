package classify

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/v0xg/uxspec/internal/design"
)

func input(name string, y float64) *design.Node {
	return &design.Node{Kind: design.KindRectangle, Name: name, Strokes: solid, X: 20, Y: y, Width: 300, Height: 44}
}

func loginScreen(inputs ...*design.Node) *design.Node {
	children := []*design.Node{
		{Kind: design.KindText, Characters: "Welcome back", FontSize: 32},
		{Kind: design.KindFrame, Name: "Card", Children: []*design.Node{
			{Kind: design.KindText, Characters: "Use your account"},
		}},
	}
	for _, in := range inputs {
		children = append(children, in)
	}
	children = append(children, &design.Node{
		Kind: design.KindFrame, Name: "Submit", CornerRadius: 8, Fills: solid,
		X: 20, Y: 400, Width: 300, Height: 48,
		Children:  []*design.Node{{Kind: design.KindText, Characters: "Sign in", FontWeight: 600}},
		Reactions: []design.Reaction{{Action: design.Action{Type: "NAVIGATE", DestinationID: "home"}}},
	})
	return &design.Node{Kind: design.KindFrame, Name: "Login", Width: 375, Height: 812, Children: children}
}

func TestAnalyzeTextHierarchy(t *testing.T) {
	a, err := Analyze(loginScreen())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	want := []struct {
		content string
		level   int
		role    TextRole
	}{
		{"Welcome back", 1, RoleTitle},
		{"Use your account", 2, RoleBody},
		{"Sign in", 2, RoleLabel},
	}
	if len(a.TextHierarchy) != len(want) {
		t.Fatalf("text elements = %d, want %d", len(a.TextHierarchy), len(want))
	}
	for i, w := range want {
		got := a.TextHierarchy[i]
		if got.Content != w.content || got.Level != w.level || got.Role != w.role {
			t.Errorf("[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestAnalyzeFormWithTwoInputs(t *testing.T) {
	a, err := Analyze(loginScreen(input("Email", 200), input("Password", 260)))
	if err != nil {
		t.Fatal(err)
	}

	f := a.FormFields
	if !f.IsForm || f.FieldCount != 2 {
		t.Fatalf("form = %+v, want 2-field form", f)
	}
	if f.Fields[0] != "Email" || f.Fields[1] != "Password" {
		t.Errorf("fields = %v, want discovery order", f.Fields)
	}
	if len(f.SubmitButtons) != 1 || f.SubmitButtons[0].Label != "Sign in" {
		t.Errorf("submit buttons = %+v", f.SubmitButtons)
	}
}

func TestAnalyzeSingleInputIsNotForm(t *testing.T) {
	a, err := Analyze(loginScreen(input("Search", 200)))
	if err != nil {
		t.Fatal(err)
	}
	if a.FormFields.IsForm || a.FormFields.FieldCount != 0 || a.FormFields.Fields != nil || a.FormFields.SubmitButtons != nil {
		t.Errorf("form = %+v, want bare is_form=false", a.FormFields)
	}
	if len(a.InteractiveElements) != 2 {
		t.Fatalf("interactive = %+v", a.InteractiveElements)
	}
	if a.InteractiveElements[0].Type != ElementInput || a.InteractiveElements[1].Type != ElementButton {
		t.Errorf("interactive order = %+v", a.InteractiveElements)
	}
	if a.InteractiveElements[1].Position != (Position{X: 20, Y: 400}) {
		t.Errorf("button position = %+v", a.InteractiveElements[1].Position)
	}
}

func TestFormSummaryJSON(t *testing.T) {
	tests := []struct {
		name string
		in   FormSummary
		want string
	}{
		{
			name: "form without buttons",
			in:   DetectForm([]InteractiveElement{{Type: ElementInput, Label: "Email"}, {Type: ElementInput, Label: "Password"}}),
			want: `{"is_form":true,"field_count":2,"fields":["Email","Password"],"submit_buttons":[]}`,
		},
		{
			name: "not a form",
			in:   DetectForm([]InteractiveElement{{Type: ElementInput, Label: "Search"}}),
			want: `{"is_form":false}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("json = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAnalyzeNavigationElements(t *testing.T) {
	screen := loginScreen()
	screen.Reactions = []design.Reaction{{Action: design.Action{Type: "NAVIGATE", DestinationID: "root-level"}}}

	a, err := Analyze(screen)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.NavigationElements) != 1 {
		t.Fatalf("navigation = %+v, want only the nested button", a.NavigationElements)
	}
	nav := a.NavigationElements[0]
	if nav.Label != "Sign in" || nav.DestinationID != "home" || nav.Trigger != DefaultTrigger {
		t.Errorf("navigation = %+v", nav)
	}
}

func TestAnalyzeDataDisplays(t *testing.T) {
	item := func(x, y float64) *design.Node {
		return &design.Node{Kind: design.KindFrame, X: x, Y: y, Width: 100, Height: 60}
	}
	screen := &design.Node{Kind: design.KindFrame, Name: "Feed", Width: 400, Height: 800, Children: []*design.Node{
		{Kind: design.KindFrame, Name: "Posts", Children: []*design.Node{item(0, 0), item(0, 70), item(0, 140)}},
		{Kind: design.KindGroup, Name: "Tabs", Children: []*design.Node{item(0, 0), item(110, 0), item(220, 0)}},
		{Kind: design.KindFrame, Name: "Gallery", Children: []*design.Node{item(0, 0), item(110, 0), item(0, 70), item(110.5, 70)}},
		{Kind: design.KindFrame, Name: "Mixed", Children: []*design.Node{item(0, 0), item(0, 70), {Kind: design.KindText}}},
		{Kind: design.KindFrame, Name: "Pair", Children: []*design.Node{item(0, 0), item(0, 70)}},
	}}

	a, err := Analyze(screen)
	if err != nil {
		t.Fatal(err)
	}
	want := []DataDisplay{
		{Name: "Posts", Kind: "list", ItemCount: 3},
		{Name: "Tabs", Kind: "row", ItemCount: 3},
		{Name: "Gallery", Kind: "grid", ItemCount: 4},
	}
	if len(a.DataDisplays) != len(want) {
		t.Fatalf("data displays = %+v", a.DataDisplays)
	}
	for i := range want {
		if a.DataDisplays[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, a.DataDisplays[i], want[i])
		}
	}
}

func TestAnalyzeStructuralError(t *testing.T) {
	root := &design.Node{Kind: design.KindFrame}
	root.Children = []*design.Node{root}

	_, err := Analyze(root)
	var se *design.StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected StructuralError, got %v", err)
	}
}
