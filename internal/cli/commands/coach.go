package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/apalint/internal/cli/output"
	"github.com/leapstack-labs/apalint/internal/coach"
)

// CoachOptions holds options for the coach command.
type CoachOptions struct {
	Mode        string
	Profile     string
	Paper       string
	Course      string
	Program     string
	Topic       string
	Section     string
	TextFile    string
	Question    string
	RequestFile string
}

// NewCoachCommand creates the coach command.
func NewCoachCommand() *cobra.Command {
	opts := &CoachOptions{}
	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Get writing guidance for a section",
		Long: `Ask the writing coach to plan a section, review a draft, clarify
assignment instructions or detect the document profile.

Uses the augmentation provider when enabled and falls back to built-in
guidance otherwise.`,
		Example: `  # Plan the introduction of an essay
  apalint coach --mode PLAN_SECTION --topic "Energías renovables" --section Introducción

  # Review a draft section
  apalint coach --mode REVIEW_SECTION --section Método --text-file metodo.txt

  # Send a full request
  apalint coach --request-file request.json -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCoach(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", string(coach.ModePlanSection),
		"DETECT_PROFILE, PLAN_SECTION, REVIEW_SECTION or CLARIFY_INSTRUCTIONS")
	cmd.Flags().StringVar(&opts.Profile, "profile", string(coach.ProfileCUN), "Norm to follow: cun, apa7_global")
	cmd.Flags().StringVar(&opts.Paper, "paper", string(coach.StudentPaper), "Paper profile: student_paper, professional_paper")
	cmd.Flags().StringVar(&opts.Course, "course", "", "Course name")
	cmd.Flags().StringVar(&opts.Program, "program", "", "Academic program")
	cmd.Flags().StringVar(&opts.Topic, "topic", "", "Topic of the work")
	cmd.Flags().StringVar(&opts.Section, "section", "", "Section to work on")
	cmd.Flags().StringVar(&opts.TextFile, "text-file", "", "File with the student's text")
	cmd.Flags().StringVar(&opts.Question, "question", "", "Question for the coach")
	cmd.Flags().StringVar(&opts.RequestFile, "request-file", "", "JSON file with a complete coach request")

	_ = cmd.RegisterFlagCompletionFunc("mode", fixedCompletion(
		string(coach.ModeDetectProfile), string(coach.ModePlanSection),
		string(coach.ModeReviewSection), string(coach.ModeClarifyInstructions)))
	_ = cmd.RegisterFlagCompletionFunc("profile", fixedCompletion(string(coach.ProfileCUN), string(coach.ProfileAPA7Global)))

	return cmd
}

func runCoach(cmd *cobra.Command, opts *CoachOptions) error {
	req, err := buildCoachRequest(cmd.InOrStdin(), opts)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if req.LintContext.Variant == "" {
		req.LintContext = cmdCtx.Cfg.Lint.LintContext()
	}
	resp, err := cmdCtx.Coach.Handle(cmd.Context(), req)
	if err != nil {
		return err
	}
	return renderCoach(cmdCtx.Renderer, resp)
}

// buildCoachRequest reads --request-file, or assembles a request from flags.
// A --text-file of "-" reads stdin.
func buildCoachRequest(stdin io.Reader, opts *CoachOptions) (coach.Request, error) {
	var req coach.Request
	if opts.RequestFile != "" {
		data, err := os.ReadFile(opts.RequestFile)
		if err != nil {
			return req, fmt.Errorf("failed to read request file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("invalid request file %s: %w", opts.RequestFile, err)
		}
		return req, nil
	}

	req = coach.Request{
		Profile:         coach.Profile(opts.Profile),
		Mode:            coach.Mode(opts.Mode),
		StudentQuestion: opts.Question,
		Context: coach.Context{
			PaperProfile: coach.PaperProfile(opts.Paper),
			Course:       opts.Course,
			Program:      opts.Program,
			Topic:        opts.Topic,
			Section:      opts.Section,
		},
	}
	if opts.TextFile != "" {
		text, err := readDocument(stdin, opts.TextFile, "")
		if err != nil {
			return req, err
		}
		req.StudentText = text
		if strings.EqualFold(opts.Mode, string(coach.ModeDetectProfile)) {
			req.DocumentText = text
		}
	}
	return req, nil
}

func renderCoach(r *output.Renderer, resp coach.Response) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(resp)
	}

	title := fmt.Sprintf("Coach: %s (%s)", resp.Mode, resp.Profile)
	r.Header(1, title)
	section := func(name string, items []string) {
		if len(items) == 0 {
			return
		}
		r.Header(2, name)
		for _, it := range items {
			r.Println("- " + it)
		}
		r.Println()
	}

	section("Outline", resp.Outline)
	if len(resp.Feedback) > 0 {
		r.Header(2, "Feedback")
		for _, fb := range resp.Feedback {
			label := fb.Type
			if r.EffectiveMode() == output.ModeText {
				style := r.Styles().Success
				if fb.Type == coach.FeedbackImprovement {
					style = r.Styles().Warning
				}
				label = style.Render(fb.Type)
			}
			r.Printf("- [%s] %s\n", label, fb.Message)
		}
		r.Println()
	}
	section("Clarifications", resp.Clarifications)
	section("Guidance", resp.Guidance)
	section("Next actions", resp.NextActions)
	if resp.DocumentProfile != nil {
		if err := renderProfile(r, *resp.DocumentProfile); err != nil {
			return err
		}
	}
	if !resp.Augmented {
		r.Println(r.Styles().Muted.Render("Built-in guidance; enable augmentation for tailored answers."))
	}
	return nil
}
