package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/v0xg/uxspec/internal/app"
	"github.com/v0xg/uxspec/internal/design"
	"github.com/v0xg/uxspec/internal/scanner"
	"github.com/v0xg/uxspec/internal/webhook"
)

func scanCmd() *cobra.Command {
	var (
		page        string
		output      string
		send        bool
		screenshots bool
	)
	cmd := &cobra.Command{
		Use:   "scan <source>",
		Short: "Scan every screen of a design file into a project record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(cmd, false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			doc, err := loadDocument(ctx, d, args[0])
			if err != nil {
				return err
			}

			var exp scanner.Exporter
			if screenshots {
				if d.Broker == nil {
					return fmt.Errorf("--screenshots needs CLOUDINARY_CLOUD_NAME to host the images")
				}
				e, release, err := d.Exporter(doc.FileKey)
				if err != nil {
					return fmt.Errorf("exporter init failed: %w", err)
				}
				defer release()
				exp = e
			}

			res, err := scanDocument(ctx, d, doc, page, exp)
			if err != nil {
				return err
			}
			for _, f := range res.Failures {
				fmt.Fprintf(os.Stderr, "  ⚠ %s (%s): %v\n", f.Name, f.ScreenID, f.Err)
			}

			if err := writeOutput(output, &res.Project); err != nil {
				return fmt.Errorf("failed to write project: %w", err)
			}

			if send {
				done := step("Sending project to webhook")
				env, err := d.Webhook.Send(ctx, webhook.ProjectScan(&res.Project, "cli"))
				done(err, "workflow %s", workflowOf(env))
				if err != nil {
					return fmt.Errorf("webhook failed: %w", err)
				}
			}

			sum := res.Project.Summary()
			fmt.Fprintf(os.Stderr, "✓ %s: %d screens on %d pages, %d flows\n", sum.ProjectName, sum.TotalScreens, sum.TotalPages, len(res.Project.Flows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&page, "page", "p", "", "Only scan the page with this name")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	cmd.Flags().BoolVar(&send, "send", false, "Send the project to the analysis webhook")
	cmd.Flags().BoolVar(&screenshots, "screenshots", false, "Export and upload a screenshot of every screen")
	return cmd
}

func loadDocument(ctx context.Context, d *app.Deps, source string) (*design.Document, error) {
	done := step("Loading design file %s", source)
	doc, err := d.LoadDocument(ctx, source)
	done(err, "%d pages", pageCount(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to load design file: %w", err)
	}
	return doc, nil
}

func scanDocument(ctx context.Context, d *app.Deps, doc *design.Document, page string, exp scanner.Exporter) (*scanner.Result, error) {
	var up scanner.Uploader
	if exp != nil {
		up = d.Uploader()
	}
	s := scanner.New(scanner.Options{
		Exporter: exp,
		Uploader: up,
		Timeout:  d.Config.Figma.ExportTimeout,
		Page:     page,
		Logger:   d.Logger,
		Progress: func(e scanner.Event) {
			switch {
			case e.Screen != nil:
				logVerbose("  [%s] %s (%d elements)", e.Page, e.Screen.Name, len(e.Screen.ContentAnalysis.InteractiveElements))
			case e.Failure != nil:
				logVerbose("  [%s] %s failed: %v", e.Page, e.Failure.Name, e.Failure.Err)
			case e.Phase == scanner.PhaseScanning:
				logVerbose("  page %s (%d remaining)", e.Page, e.PagesRemaining)
			}
		},
	})

	done := step("Scanning screens")
	res, err := s.Assemble(ctx, doc)
	if err != nil {
		done(err, "")
		return nil, err
	}
	done(nil, "%d screens, %d failed", len(res.Project.Screens), len(res.Failures))
	return res, nil
}

func pageCount(doc *design.Document) int {
	if doc == nil {
		return 0
	}
	return len(doc.Pages)
}

func workflowOf(env *webhook.Envelope) string {
	if env == nil || env.WorkflowID == "" {
		return "mcp_processed"
	}
	return env.WorkflowID
}
