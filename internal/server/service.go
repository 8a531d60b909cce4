package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/v0xg/uxspec/internal/ai"
	"github.com/v0xg/uxspec/internal/app"
	"github.com/v0xg/uxspec/internal/design"
	"github.com/v0xg/uxspec/internal/scanner"
	"github.com/v0xg/uxspec/internal/webhook"
)

// Source tags payloads forwarded by the server
const Source = "mcp_server"

// DefaultWorkflowID is reported when the webhook does not name its workflow
const DefaultWorkflowID = "mcp_processed"

// EstimatedDuration is how long a contextual analysis usually takes downstream
const EstimatedDuration = "12-15 minutes"

// requestError is a caller mistake, answered with 400
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// ErrNotFound is returned when a requested node does not exist
var ErrNotFound = errors.New("not found")

// Failure is a ScreenFailure in wire form
type Failure struct {
	ScreenID string `json:"screen_id"`
	Name     string `json:"name"`
	Page     string `json:"page"`
	Error    string `json:"error"`
}

func failures(in []scanner.ScreenFailure) []Failure {
	out := make([]Failure, 0, len(in))
	for _, f := range in {
		out = append(out, Failure{ScreenID: f.ScreenID, Name: f.Name, Page: f.Page, Error: f.Err.Error()})
	}
	return out
}

// AnalyzeProjectRequest scans a whole file and forwards it to the webhook
type AnalyzeProjectRequest struct {
	FileKey            string               `json:"figma_file_key"`
	Page               string               `json:"page,omitempty"`
	BusinessContext    *webhook.UserContext `json:"business_context,omitempty"`
	IncludeScreenshots bool                 `json:"include_screenshots,omitempty"`
}

// AnalyzeProjectResponse reports the scan and the webhook answer
type AnalyzeProjectResponse struct {
	Status            string                 `json:"status"`
	FileKey           string                 `json:"figma_file_key"`
	Summary           scanner.Summary        `json:"summary"`
	Project           *scanner.ProjectRecord `json:"project"`
	Failures          []Failure              `json:"failures"`
	WorkflowID        string                 `json:"workflow_id"`
	EstimatedDuration string                 `json:"estimated_duration,omitempty"`
	ProcessingTime    float64                `json:"processing_time"`
}

// ExtractScreensRequest lists the screens of a file
type ExtractScreensRequest struct {
	FileKey string `json:"figma_file_key"`
	Page    string `json:"page,omitempty"`
}

// ExtractScreensResponse carries screens with render URLs
type ExtractScreensResponse struct {
	Status           string                 `json:"status"`
	ScreensExtracted int                    `json:"screens_extracted"`
	Screens          []scanner.ScreenRecord `json:"screens"`
	Failures         []Failure              `json:"failures"`
}

// AnalyzeScreenRequest analyzes one screen
type AnalyzeScreenRequest struct {
	FileKey   string `json:"figma_file_key"`
	ScreenID  string `json:"screen_id"`
	Objective string `json:"objective,omitempty"`
	// Forward sends a single_screen_analysis payload to the webhook
	Forward bool `json:"forward,omitempty"`
}

// AnalyzeScreenResponse carries the screen record and optional vision analysis
type AnalyzeScreenResponse struct {
	Status            string                `json:"status"`
	ID                string                `json:"id"`
	ScreenID          string                `json:"screen_id"`
	ScreenName        string                `json:"screen_name"`
	AnalysisTimestamp string                `json:"analysis_timestamp"`
	Screen            *scanner.ScreenRecord `json:"screen"`
	AIAnalysis        *ai.Result            `json:"ai_analysis,omitempty"`
	WorkflowID        string                `json:"workflow_id,omitempty"`
	ProcessingTime    float64               `json:"processing_time"`
}

// ExportScreenshotsRequest renders a batch of screens. Each entry is a
// screen id string or an object with an "id" field.
type ExportScreenshotsRequest struct {
	FileKey string            `json:"figma_file_key"`
	Screens []json.RawMessage `json:"screens"`
}

// DetectUserFlowsRequest resolves flows over given screens, or over a scan
// of FileKey when Screens is empty
type DetectUserFlowsRequest struct {
	FileKey string                 `json:"figma_file_key,omitempty"`
	Screens []scanner.ScreenRecord `json:"screens"`
}

// DetectUserFlowsResponse maps each source screen id to its outbound flows
type DetectUserFlowsResponse struct {
	Status    string                    `json:"status"`
	FlowCount int                       `json:"flow_count"`
	Flows     map[string][]scanner.Flow `json:"flows"`
}

// Service runs the operations against the current collaborators
type Service struct {
	deps  func() *app.Deps
	clock func() time.Time
}

func (s *Service) scanner(d *app.Deps, page string, exp scanner.Exporter) *scanner.Scanner {
	var up scanner.Uploader
	if exp != nil {
		up = d.Uploader()
	}
	return scanner.New(scanner.Options{
		Exporter: exp,
		Uploader: up,
		Timeout:  d.Config.Figma.ExportTimeout,
		Page:     page,
		Clock:    s.clock,
		Logger:   d.Logger,
	})
}

func (s *Service) document(ctx context.Context, d *app.Deps, fileKey string) (*design.Document, error) {
	if strings.TrimSpace(fileKey) == "" {
		return nil, badRequest("figma_file_key is required")
	}
	client, err := d.RequireFigma()
	if err != nil {
		return nil, err
	}
	return client.GetFile(ctx, fileKey)
}

// AnalyzeProject scans a file and forwards it: as a contextual analysis when
// a business context is given, as a plain project scan otherwise.
func (s *Service) AnalyzeProject(ctx context.Context, req AnalyzeProjectRequest) (*AnalyzeProjectResponse, error) {
	start := s.clock()
	d := s.deps()

	if req.BusinessContext != nil {
		if err := req.BusinessContext.Validate(); err != nil {
			return nil, badRequest("%v", err)
		}
	}
	doc, err := s.document(ctx, d, req.FileKey)
	if err != nil {
		return nil, err
	}

	var exp scanner.Exporter
	if req.IncludeScreenshots && d.Broker != nil {
		e, release, err := d.Exporter(req.FileKey)
		if err != nil {
			return nil, err
		}
		defer release()
		exp = e
	}

	res, err := s.scanner(d, req.Page, exp).Assemble(ctx, doc)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	project := &res.Project

	payload := webhook.ProjectScan(project, Source)
	out := &AnalyzeProjectResponse{
		Status:   "success",
		FileKey:  req.FileKey,
		Summary:  project.Summary(),
		Project:  project,
		Failures: failures(res.Failures),
	}
	if req.BusinessContext != nil {
		payload = webhook.ContextualAnalysis(req.FileKey, *req.BusinessContext, project)
		out.EstimatedDuration = EstimatedDuration
	}

	env, err := d.Webhook.Send(ctx, payload)
	if err != nil {
		return nil, err
	}
	out.WorkflowID = workflowID(env)
	out.ProcessingTime = s.clock().Sub(start).Seconds()
	return out, nil
}

// ExtractScreens lists the main screens of a file with render URLs
func (s *Service) ExtractScreens(ctx context.Context, req ExtractScreensRequest) (*ExtractScreensResponse, error) {
	d := s.deps()
	doc, err := s.document(ctx, d, req.FileKey)
	if err != nil {
		return nil, err
	}
	res, err := s.scanner(d, req.Page, nil).Assemble(ctx, doc)
	if err != nil {
		return nil, badRequest("%v", err)
	}

	screens := res.Project.Screens
	if len(screens) > 0 {
		ids := make([]string, len(screens))
		for i, sc := range screens {
			ids[i] = sc.ID
		}
		urls, err := d.Figma.GetImages(ctx, req.FileKey, ids, d.Config.Figma.Scale)
		if err != nil {
			d.Logger.Warn("screen_thumbnails_failed", "file_key", req.FileKey, "error", err)
		}
		for i := range screens {
			screens[i].ScreenshotURL = urls[screens[i].ID]
		}
	}

	return &ExtractScreensResponse{
		Status:           "success",
		ScreensExtracted: len(screens),
		Screens:          screens,
		Failures:         failures(res.Failures),
	}, nil
}

// AnalyzeScreen extracts one screen, runs the vision provider when one is
// configured, and optionally forwards the screen to the webhook
func (s *Service) AnalyzeScreen(ctx context.Context, req AnalyzeScreenRequest) (*AnalyzeScreenResponse, error) {
	start := s.clock()
	d := s.deps()

	if req.ScreenID == "" {
		return nil, badRequest("screen_id is required")
	}
	doc, err := s.document(ctx, d, req.FileKey)
	if err != nil {
		return nil, err
	}
	node, page := doc.FindNode(req.ScreenID)
	if node == nil {
		return nil, fmt.Errorf("screen %s: %w", req.ScreenID, ErrNotFound)
	}
	if node.Kind != design.KindFrame {
		return nil, badRequest("screen %s is a %s, not a FRAME", req.ScreenID, node.Kind)
	}

	var captured *app.Capture
	var exp scanner.Exporter
	if d.AI != nil || d.Broker != nil {
		e, release, err := d.Exporter(req.FileKey)
		if err != nil {
			return nil, err
		}
		defer release()
		if e != nil {
			captured = &app.Capture{Exporter: e}
			exp = captured
		}
	}

	sc := scanner.New(scanner.Options{
		Exporter: exp,
		Uploader: d.Uploader(),
		Timeout:  d.Config.Figma.ExportTimeout,
		Clock:    s.clock,
		Logger:   d.Logger,
	})
	pageName := ""
	if page != nil {
		pageName = page.Name
	}
	rec, err := sc.ExtractScreen(ctx, node, pageName, req.FileKey)
	if err != nil {
		return nil, err
	}

	out := &AnalyzeScreenResponse{
		Status:            "success",
		ID:                rec.ID,
		ScreenID:          rec.ID,
		ScreenName:        rec.Name,
		AnalysisTimestamp: s.clock().UTC().Format(time.RFC3339),
		Screen:            rec,
	}

	if d.AI != nil && captured != nil && captured.PNG != nil {
		result, err := d.Vision(ctx, rec, captured.PNG, req.Objective)
		if err != nil {
			return nil, err
		}
		out.AIAnalysis = result
	}

	if req.Forward {
		env, err := d.Webhook.Send(ctx, webhook.SingleScreenAnalysis(rec, Source))
		if err != nil {
			return nil, err
		}
		out.WorkflowID = workflowID(env)
	}

	out.ProcessingTime = s.clock().Sub(start).Seconds()
	return out, nil
}

// ExportScreenshots returns each requested screen with its render URL, or a
// null screenshot_url when the API rendered nothing for it
func (s *Service) ExportScreenshots(ctx context.Context, req ExportScreenshotsRequest) ([]map[string]any, error) {
	d := s.deps()
	if req.Screens == nil {
		return nil, badRequest("screens (array) is required")
	}
	if strings.TrimSpace(req.FileKey) == "" {
		return nil, badRequest("figma_file_key (string) is required")
	}

	entries := make([]map[string]any, 0, len(req.Screens))
	var ids []string
	for _, raw := range req.Screens {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			if id != "" {
				entries = append(entries, map[string]any{"id": id})
				ids = append(ids, id)
			}
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		if id, _ := obj["id"].(string); id != "" {
			entries = append(entries, obj)
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, badRequest("no valid screen id")
	}

	client, err := d.RequireFigma()
	if err != nil {
		return nil, err
	}
	urls, err := client.GetImages(ctx, req.FileKey, ids, d.Config.Figma.Scale)
	if err != nil {
		return nil, err
	}

	for i, e := range entries {
		if u, ok := urls[ids[i]]; ok {
			e["screenshot_url"] = u
		} else {
			e["screenshot_url"] = nil
		}
	}
	return entries, nil
}

// DetectUserFlows resolves navigation flows
func (s *Service) DetectUserFlows(ctx context.Context, req DetectUserFlowsRequest) (*DetectUserFlowsResponse, error) {
	screens := req.Screens
	if len(screens) == 0 {
		if req.FileKey == "" {
			return nil, badRequest("screens or figma_file_key is required")
		}
		d := s.deps()
		doc, err := s.document(ctx, d, req.FileKey)
		if err != nil {
			return nil, err
		}
		res, err := s.scanner(d, "", nil).Assemble(ctx, doc)
		if err != nil {
			return nil, err
		}
		screens = res.Project.Screens
	}

	flows := scanner.DetectFlows(screens)
	count := 0
	for _, fs := range flows {
		count += len(fs)
	}
	return &DetectUserFlowsResponse{Status: "success", FlowCount: count, Flows: flows}, nil
}

func workflowID(env *webhook.Envelope) string {
	if env == nil || env.WorkflowID == "" {
		return DefaultWorkflowID
	}
	return env.WorkflowID
}
