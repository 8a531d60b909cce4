package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/v0xg/uxspec/internal/design"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeExporter struct {
	fail  map[string]error
	block map[string]bool
	calls []string
}

func (f *fakeExporter) ExportScreenshot(ctx context.Context, n *design.Node) ([]byte, error) {
	f.calls = append(f.calls, n.ID)
	if f.block[n.ID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.fail[n.ID]; err != nil {
		return nil, err
	}
	return []byte("png:" + n.ID), nil
}

type fakeUploader struct {
	fail map[string]bool
}

func (f *fakeUploader) Upload(_ context.Context, id, _ string, png []byte) (string, error) {
	if f.fail[id] {
		return "", errors.New("storage unavailable")
	}
	return "https://img.example/" + id + "?" + string(png), nil
}

func frame(id, name string, reactions ...design.Reaction) *design.Node {
	return &design.Node{ID: id, Name: name, Kind: design.KindFrame, Width: 375, Height: 812, Reactions: reactions,
		Children: []*design.Node{{ID: id + ":t", Kind: design.KindText, Characters: name, FontSize: 28}}}
}

func navigate(dest string) design.Reaction {
	return design.Reaction{Trigger: "ON_CLICK", Action: design.Action{Type: "NAVIGATE", DestinationID: dest, Transition: "SMART_ANIMATE"}}
}

func testDoc() *design.Document {
	return &design.Document{
		ID: "0:0", Name: "Shop", FileKey: "KEY",
		Pages: []*design.Page{
			{Name: "Auth", Children: []*design.Node{
				frame("1", "Login", navigate("3")),
				{ID: "2", Name: "dot", Kind: design.KindRectangle, Width: 4, Height: 4},
				frame("c", "Card component"),
			}},
			{Name: "Home", Children: []*design.Node{
				frame("3", "Dashboard", navigate("1"), navigate("404")),
			}},
		},
	}
}

func fixedClock() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }

func TestAssembleSinglePage(t *testing.T) {
	doc := &design.Document{Name: "One", Pages: []*design.Page{{Name: "Main", Children: []*design.Node{
		frame("1", "Home"),
		{ID: "2", Name: "tiny", Kind: design.KindRectangle, Width: 10, Height: 10},
	}}}}

	res, err := New(Options{Logger: quiet}).Assemble(context.Background(), doc)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	p := res.Project
	if len(p.Screens) != 1 || p.Screens[0].ID != "1" {
		t.Fatalf("screens = %+v", p.Screens)
	}
	if len(p.PagesBreakdown) != 1 || p.PagesBreakdown[0].ScreenCount != 1 || p.PagesBreakdown[0].PageType != "main" {
		t.Errorf("breakdown = %+v", p.PagesBreakdown)
	}
	if p.Screens[0].ScreenshotURL != "" {
		t.Error("no exporter configured, screenshot must be empty")
	}
}

func TestAssembleProject(t *testing.T) {
	exp := &fakeExporter{}
	s := New(Options{Exporter: exp, Uploader: &fakeUploader{}, Clock: fixedClock, Logger: quiet})

	res, err := s.Assemble(context.Background(), testDoc())
	if err != nil {
		t.Fatal(err)
	}
	p := res.Project

	if len(res.Failures) != 0 {
		t.Fatalf("failures = %v", res.Failures)
	}
	if len(p.Screens) != 2 || p.Screens[0].Name != "Login" || p.Screens[1].Name != "Dashboard" {
		t.Fatalf("screens not in page/child order: %+v", p.Screens)
	}
	if got := exp.calls; len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Errorf("export calls = %v", got)
	}

	login := p.Screens[0]
	if login.ScreenshotURL != "https://img.example/1?png:1" {
		t.Errorf("screenshot url = %q", login.ScreenshotURL)
	}
	if login.FigmaURL != "https://figma.com/file/KEY?node-id=1" || login.Page != "Auth" {
		t.Errorf("login = %+v", login)
	}
	if len(login.Connections) != 1 || *login.Connections[0].Transition != "SMART_ANIMATE" || login.Connections[0].Trigger != "ON_CLICK" {
		t.Errorf("connections = %+v", login.Connections)
	}

	md := p.Metadata
	if md.TotalPages != 2 || md.CurrentPage != "Auth" || md.ExtractedAt != "2026-10-18T09:00:00Z" || md.SourceURL != "https://figma.com/file/KEY" {
		t.Errorf("metadata = %+v", md)
	}

	if p.PagesBreakdown[0].ScreenCount != 1 || p.PagesBreakdown[0].PageType != "authentication" {
		t.Errorf("auth breakdown = %+v", p.PagesBreakdown[0])
	}

	flows := p.Flows
	if flows["1"][0].To != "Dashboard" {
		t.Errorf("cross-page flow = %+v", flows["1"])
	}
	if flows["3"][0].To != "Login" || flows["3"][1].To != UnknownScreen {
		t.Errorf("dashboard flows = %+v", flows["3"])
	}
}

func TestAssembleExcludesFailedScreens(t *testing.T) {
	exp := &fakeExporter{fail: map[string]error{"1": errors.New("render failed")}}
	up := &fakeUploader{fail: map[string]bool{"3": true}}
	doc := testDoc()
	doc.Pages[1].Children = append(doc.Pages[1].Children, frame("4", "Profile"))

	res, err := New(Options{Exporter: exp, Uploader: up, Logger: quiet}).Assemble(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Project.Screens) != 1 || res.Project.Screens[0].ID != "4" {
		t.Fatalf("screens = %+v", res.Project.Screens)
	}
	if len(res.Failures) != 2 {
		t.Fatalf("failures = %v", res.Failures)
	}
	var ee *ExportError
	if !errors.As(res.Failures[0], &ee) || ee.NodeID != "1" {
		t.Errorf("failure[0] = %v, want ExportError", res.Failures[0])
	}
	var ue *UploadError
	if !errors.As(res.Failures[1], &ue) || ue.NodeID != "3" {
		t.Errorf("failure[1] = %v, want UploadError", res.Failures[1])
	}
	if res.Project.PagesBreakdown[0].ScreenCount != 0 || res.Project.PagesBreakdown[1].ScreenCount != 1 {
		t.Errorf("breakdown = %+v", res.Project.PagesBreakdown)
	}
}

func TestAssembleExportTimeout(t *testing.T) {
	exp := &fakeExporter{block: map[string]bool{"1": true}}
	s := New(Options{Exporter: exp, Timeout: 20 * time.Millisecond, Logger: quiet})

	res, err := s.Assemble(context.Background(), testDoc())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failures) != 1 || !errors.Is(res.Failures[0], ErrTimeout) {
		t.Fatalf("failures = %v, want one timeout", res.Failures)
	}
	if len(res.Project.Screens) != 1 || res.Project.Screens[0].ID != "3" {
		t.Errorf("screens = %+v", res.Project.Screens)
	}
}

func TestAssembleStructuralError(t *testing.T) {
	doc := testDoc()
	bad := frame("9", "Broken")
	bad.Children[0].Children = []*design.Node{bad}
	doc.Pages[0].Children = append(doc.Pages[0].Children, bad)

	res, err := New(Options{Logger: quiet}).Assemble(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	var se *StructuralError
	if len(res.Failures) != 1 || !errors.As(res.Failures[0], &se) {
		t.Fatalf("failures = %v", res.Failures)
	}
	if len(res.Project.Screens) != 2 {
		t.Errorf("screens = %d, want 2", len(res.Project.Screens))
	}
}

func TestAssembleDuplicateIDs(t *testing.T) {
	doc := testDoc()
	doc.Pages[1].Children = append(doc.Pages[1].Children, frame("1", "Login copy"))

	res, err := New(Options{Logger: quiet}).Assemble(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failures) != 1 || !errors.Is(res.Failures[0], ErrDuplicateScreen) {
		t.Fatalf("failures = %v", res.Failures)
	}
	if res.Failures[0].Name != "Login copy" {
		t.Errorf("later occurrence should fail, got %q", res.Failures[0].Name)
	}
}

func TestAssemblePageFilter(t *testing.T) {
	s := New(Options{Page: "Home", Logger: quiet})
	res, err := s.Assemble(context.Background(), testDoc())
	if err != nil {
		t.Fatal(err)
	}
	if res.Project.Metadata.TotalPages != 1 || res.Project.Metadata.CurrentPage != "Home" {
		t.Errorf("metadata = %+v", res.Project.Metadata)
	}
	if res.Project.Flows["3"][0].To != UnknownScreen {
		t.Errorf("off-page destination should not resolve: %+v", res.Project.Flows["3"])
	}

	if _, err := New(Options{Page: "Nope", Logger: quiet}).Assemble(context.Background(), testDoc()); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestAssembleIdempotent(t *testing.T) {
	tick := fixedClock()
	clock := func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	s := New(Options{Exporter: &fakeExporter{}, Uploader: &fakeUploader{}, Clock: clock, Logger: quiet})

	encode := func() ([]byte, string) {
		res, err := s.Assemble(context.Background(), testDoc())
		if err != nil {
			t.Fatal(err)
		}
		data, err := json.Marshal(res.Project.Screens)
		if err != nil {
			t.Fatal(err)
		}
		return data, res.Project.Metadata.ExtractedAt
	}

	first, at1 := encode()
	second, at2 := encode()
	if !bytes.Equal(first, second) {
		t.Errorf("screens differ between runs:\n%s\n%s", first, second)
	}
	if at1 == at2 {
		t.Error("extracted_at should reflect each run")
	}
}

func TestAssembleProgressPhases(t *testing.T) {
	var phases []Phase
	screens := 0
	s := New(Options{Logger: quiet, Progress: func(e Event) {
		if e.Screen != nil {
			screens++
			return
		}
		if len(phases) == 0 || phases[len(phases)-1] != e.Phase {
			phases = append(phases, e.Phase)
		}
	}})

	if _, err := s.Assemble(context.Background(), testDoc()); err != nil {
		t.Fatal(err)
	}
	want := []Phase{PhaseIdle, PhaseScanning, PhaseAggregating, PhaseDone}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v", phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("phase[%d] = %v, want %v", i, phases[i], want[i])
		}
	}
	if screens != 2 {
		t.Errorf("screen events = %d", screens)
	}
}

func TestProjectJSONShape(t *testing.T) {
	res, err := New(Options{Clock: fixedClock, Logger: quiet}).Assemble(context.Background(), testDoc())
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(res.Project)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"metadata", "screens", "pages_breakdown", "flows", "design_system"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	ds := raw["design_system"].(map[string]any)
	if colors, ok := ds["colors"].([]any); !ok || len(colors) != 0 {
		t.Errorf("design_system.colors = %v, want []", ds["colors"])
	}
	screen := raw["screens"].([]any)[1].(map[string]any)
	conns := screen["connections"].([]any)
	if conns[0].(map[string]any)["destination_id"] != "1" {
		t.Errorf("connection = %v", conns[0])
	}
	form := screen["content_analysis"].(map[string]any)["form_fields"].(map[string]any)
	if len(form) != 1 || form["is_form"] != false {
		t.Errorf("form_fields = %v, want only is_form", form)
	}
}
