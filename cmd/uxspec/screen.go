package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/v0xg/uxspec/internal/ai"
	"github.com/v0xg/uxspec/internal/app"
	"github.com/v0xg/uxspec/internal/design"
	"github.com/v0xg/uxspec/internal/scanner"
	"github.com/v0xg/uxspec/internal/webhook"
)

type screenOutput struct {
	Screen     *scanner.ScreenRecord `json:"screen"`
	AIAnalysis *ai.Result            `json:"ai_analysis,omitempty"`
	WorkflowID string                `json:"workflow_id,omitempty"`
}

func screenCmd() *cobra.Command {
	var (
		useAI     bool
		objective string
		send      bool
		output    string
	)
	cmd := &cobra.Command{
		Use:   "screen <source> <node-id>",
		Short: "Extract one screen and optionally analyze it with a vision model",
		Args:  cobra.ExactArgs(2),
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
			node, page := doc.FindNode(args[1])
			if node == nil {
				return fmt.Errorf("node %s not found in %q", args[1], doc.Name)
			}
			if node.Kind != design.KindFrame {
				return fmt.Errorf("node %s is a %s, not a FRAME", args[1], node.Kind)
			}
			if useAI && d.AI == nil {
				return fmt.Errorf("--ai needs an API key for provider %s", d.Config.AI.Provider)
			}

			var captured *app.Capture
			var exp scanner.Exporter
			if useAI || d.Broker != nil {
				e, release, err := d.Exporter(doc.FileKey)
				if err != nil {
					return fmt.Errorf("exporter init failed: %w", err)
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
				Logger:   d.Logger,
			})
			done := step("Extracting %s", node.Name)
			rec, err := sc.ExtractScreen(ctx, node, page.Name, doc.FileKey)
			done(err, "%d interactive elements", interactiveCount(rec))
			if err != nil {
				return err
			}
			out := screenOutput{Screen: rec}

			if useAI {
				if captured == nil || captured.PNG == nil {
					return fmt.Errorf("--ai needs a screenshot exporter (api or browser)")
				}
				done := step("Analyzing with %s", d.Config.AI.Provider)
				res, err := d.Vision(ctx, rec, captured.PNG, objective)
				done(err, "")
				if err != nil {
					return fmt.Errorf("analysis failed: %w", err)
				}
				out.AIAnalysis = res
			}

			if send {
				done := step("Sending screen to webhook")
				env, err := d.Webhook.Send(ctx, webhook.SingleScreenAnalysis(rec, "cli"))
				done(err, "")
				if err != nil {
					return fmt.Errorf("webhook failed: %w", err)
				}
				out.WorkflowID = workflowOf(env)
			}

			if err := writeOutput(output, &out); err != nil {
				return fmt.Errorf("failed to write screen: %w", err)
			}
			fmt.Fprintf(os.Stderr, "✓ %s\n", rec.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useAI, "ai", false, "Analyze the screenshot with the configured vision provider")
	cmd.Flags().StringVar(&objective, "objective", "", "What the screen should achieve, passed to the vision model")
	cmd.Flags().BoolVar(&send, "send", false, "Send the screen to the analysis webhook")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	return cmd
}

func interactiveCount(rec *scanner.ScreenRecord) int {
	if rec == nil {
		return 0
	}
	return len(rec.ContentAnalysis.InteractiveElements)
}
