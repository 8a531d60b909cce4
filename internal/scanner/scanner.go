package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/v0xg/uxspec/internal/classify"
	"github.com/v0xg/uxspec/internal/design"
)

// DefaultTimeout bounds each external call made while extracting a screen
const DefaultTimeout = 30 * time.Second

// Exporter renders a node to PNG bytes
type Exporter interface {
	ExportScreenshot(ctx context.Context, node *design.Node) ([]byte, error)
}

// Uploader hosts PNG bytes and returns a retrievable URL. screenID
// correlates the request and must be unique among in-flight uploads.
type Uploader interface {
	Upload(ctx context.Context, screenID, name string, png []byte) (string, error)
}

// Phase is the state of a scan
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseAggregating
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScanning:
		return "scanning"
	case PhaseAggregating:
		return "aggregating"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Event reports scan progress. Screen or Failure is set when a screen has
// been processed.
type Event struct {
	Phase          Phase
	Page           string
	PagesRemaining int
	Screen         *ScreenRecord
	Failure        *ScreenFailure
}

// Options configures a Scanner
type Options struct {
	Exporter Exporter // nil skips screenshots
	Uploader Uploader // nil leaves screenshot_url empty
	Timeout  time.Duration
	Page     string // scan only this page when set
	Clock    func() time.Time
	Logger   *slog.Logger
	Progress func(Event)
}

// Result is a project record plus the screens that had to be excluded
type Result struct {
	Project  ProjectRecord
	Failures []ScreenFailure
}

// Scanner assembles project records. It holds no state between scans.
type Scanner struct {
	opts Options
}

// New creates a Scanner
func New(opts Options) *Scanner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scanner{opts: opts}
}

// Assemble scans every main screen of doc, page by page and in child order,
// then resolves flows over the whole screen set. A screen that fails is
// logged, reported in Result.Failures and left out; it never aborts the scan.
func (s *Scanner) Assemble(ctx context.Context, doc *design.Document) (*Result, error) {
	pages := doc.Pages
	if s.opts.Page != "" {
		p := doc.Page(s.opts.Page)
		if p == nil {
			return nil, fmt.Errorf("page %q not found in %q", s.opts.Page, doc.Name)
		}
		pages = []*design.Page{p}
	}

	log := s.opts.Logger.With("document", doc.Name)
	s.emit(Event{Phase: PhaseIdle})

	res := &Result{
		Project: ProjectRecord{
			Metadata:       s.metadata(doc, pages),
			Screens:        []ScreenRecord{},
			PagesBreakdown: make([]PageBreakdown, 0, len(pages)),
			DesignSystem:   EmptyDesignSystem(),
		},
	}
	seen := map[string]bool{}

	for i, page := range pages {
		s.emit(Event{Phase: PhaseScanning, Page: page.Name, PagesRemaining: len(pages) - i})
		count := 0
		for _, node := range page.Children {
			if node == nil || !classify.IsMainScreen(node) {
				continue
			}

			var (
				screen *ScreenRecord
				err    error
			)
			if seen[node.ID] {
				err = fmt.Errorf("%w: %s", ErrDuplicateScreen, node.ID)
			} else {
				screen, err = s.ExtractScreen(ctx, node, page.Name, doc.FileKey)
			}
			if err != nil {
				f := ScreenFailure{ScreenID: node.ID, Name: node.Name, Page: page.Name, Err: err}
				log.Warn("screen_extraction_failed", "screen", node.Name, "id", node.ID, "page", page.Name, "error", err)
				res.Failures = append(res.Failures, f)
				s.emit(Event{Phase: PhaseScanning, Page: page.Name, Failure: &f})
				continue
			}

			seen[node.ID] = true
			res.Project.Screens = append(res.Project.Screens, *screen)
			count++
			s.emit(Event{Phase: PhaseScanning, Page: page.Name, Screen: screen})
		}

		res.Project.PagesBreakdown = append(res.Project.PagesBreakdown, PageBreakdown{
			Name:        page.Name,
			ScreenCount: count,
			PageType:    classify.InferPageType(page.Name),
		})
	}

	s.emit(Event{Phase: PhaseAggregating})
	res.Project.Flows = DetectFlows(res.Project.Screens)

	log.Info("project_scanned", "screens", len(res.Project.Screens), "failures", len(res.Failures), "flows", len(res.Project.Flows))
	s.emit(Event{Phase: PhaseDone})
	return res, nil
}

// ExtractScreen builds the record of a single screen: content analysis,
// frame-level connections and, when configured, an exported and uploaded
// screenshot.
func (s *Scanner) ExtractScreen(ctx context.Context, node *design.Node, pageName, fileKey string) (*ScreenRecord, error) {
	analysis, err := classify.Analyze(node)
	if err != nil {
		return nil, err
	}

	rec := &ScreenRecord{
		ID:              node.ID,
		Name:            node.Name,
		Page:            pageName,
		Dimensions:      Dimensions{Width: node.Width, Height: node.Height},
		Position:        classify.Position{X: node.X, Y: node.Y},
		FigmaURL:        NodeURL(fileKey, node.ID),
		ContentAnalysis: analysis,
		Connections:     Connections(node),
	}

	png, err := s.export(ctx, node)
	if err != nil {
		return nil, err
	}
	if png == nil || s.opts.Uploader == nil {
		return rec, nil
	}

	url, err := s.upload(ctx, node, png)
	if err != nil {
		return nil, err
	}
	rec.ScreenshotURL = url
	return rec, nil
}

// Screenshot exports node under the per-call timeout. It returns nil bytes
// when no exporter is configured.
func (s *Scanner) Screenshot(ctx context.Context, node *design.Node) ([]byte, error) {
	return s.export(ctx, node)
}

func (s *Scanner) export(ctx context.Context, node *design.Node) ([]byte, error) {
	if s.opts.Exporter == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	png, err := s.opts.Exporter.ExportScreenshot(ctx, node)
	if err != nil {
		return nil, &ExportError{NodeID: node.ID, Err: timeoutErr(err)}
	}
	return png, nil
}

func (s *Scanner) upload(ctx context.Context, node *design.Node, png []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	url, err := s.opts.Uploader.Upload(ctx, node.ID, node.Name, png)
	if err != nil {
		return "", &UploadError{NodeID: node.ID, Err: timeoutErr(err)}
	}
	return url, nil
}

func (s *Scanner) metadata(doc *design.Document, pages []*design.Page) Metadata {
	md := Metadata{
		Name:        doc.Name,
		ID:          doc.ID,
		FileKey:     doc.FileKey,
		SourceURL:   FileURL(doc.FileKey),
		TotalPages:  len(pages),
		ExtractedAt: s.opts.Clock().UTC().Format(time.RFC3339),
	}
	if len(pages) > 0 {
		md.CurrentPage = pages[0].Name
	}
	return md
}

func (s *Scanner) emit(e Event) {
	if s.opts.Progress != nil {
		s.opts.Progress(e)
	}
}

// Connections lists the NAVIGATE reactions declared on node itself
func Connections(node *design.Node) []Connection {
	conns := []Connection{}
	for _, r := range node.Reactions {
		if r.Action.Type != "NAVIGATE" {
			continue
		}
		c := Connection{Trigger: r.Trigger, DestinationID: r.Action.DestinationID}
		if c.Trigger == "" {
			c.Trigger = classify.DefaultTrigger
		}
		if r.Action.Transition != "" {
			t := r.Action.Transition
			c.Transition = &t
		}
		conns = append(conns, c)
	}
	return conns
}

// FileURL is the browser URL of a design file
func FileURL(fileKey string) string {
	if fileKey == "" {
		return ""
	}
	return "https://figma.com/file/" + fileKey
}

// NodeURL is the browser URL of a node inside a design file
func NodeURL(fileKey, nodeID string) string {
	if fileKey == "" {
		return ""
	}
	return FileURL(fileKey) + "?node-id=" + nodeID
}

func timeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
