// Package coach gives writing guidance for a section of an academic
// document: an outline to plan it, feedback on a draft, or an explanation
// of the assignment. Answers come from the augmentation capability when it
// is available and from fixed templates otherwise.
package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/apalint/internal/augment"
	"github.com/leapstack-labs/apalint/pkg/core"
)

// Mode selects what the coach does.
type Mode string

// Modes.
const (
	ModeDetectProfile       Mode = "DETECT_PROFILE"
	ModePlanSection         Mode = "PLAN_SECTION"
	ModeReviewSection       Mode = "REVIEW_SECTION"
	ModeClarifyInstructions Mode = "CLARIFY_INSTRUCTIONS"
)

// Profile is the norm the coach follows.
type Profile string

// Profiles.
const (
	ProfileAPA7Global Profile = "apa7_global"
	ProfileCUN        Profile = "cun"
)

// PaperProfile is the APA paper kind.
type PaperProfile string

// Paper profiles.
const (
	StudentPaper      PaperProfile = "student_paper"
	ProfessionalPaper PaperProfile = "professional_paper"
)

// Feedback item types.
const (
	FeedbackStrength    = "strength"
	FeedbackImprovement = "improvement"
)

// Context describes the assignment around the request.
type Context struct {
	PaperProfile       PaperProfile `json:"paper_profile,omitempty"`
	AuthorRole         string       `json:"author_role,omitempty"`
	AudienceRole       string       `json:"audience_role,omitempty"`
	ValidationProfiles []string     `json:"validation_profiles,omitempty"`
	Course             string       `json:"course,omitempty"`
	Program            string       `json:"program,omitempty"`
	Semester           string       `json:"semester,omitempty"`
	Institution        string       `json:"institution,omitempty"`
	Topic              string       `json:"topic,omitempty"`
	Section            string       `json:"section,omitempty"`
	ACAInstructions    string       `json:"aca_instructions,omitempty"`
	LocalGuidelines    string       `json:"local_guidelines,omitempty"`
}

// Request is one coach call.
type Request struct {
	Profile         Profile          `json:"profile"`
	Mode            Mode             `json:"mode"`
	Context         Context          `json:"context"`
	StudentText     string           `json:"student_text,omitempty"`
	StudentQuestion string           `json:"student_question,omitempty"`
	DocumentText    string           `json:"document_text,omitempty"`
	LintContext     core.LintContext `json:"lint_context,omitempty"`
}

// FeedbackItem is a strength or an improvement.
type FeedbackItem struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Response is the coach answer. Only the fields relevant to the mode are set.
type Response struct {
	Success         bool                  `json:"success"`
	Profile         Profile               `json:"profile"`
	Mode            Mode                  `json:"mode"`
	Outline         []string              `json:"outline"`
	Guidance        []string              `json:"guidance"`
	Feedback        []FeedbackItem        `json:"feedback"`
	Clarifications  []string              `json:"clarifications"`
	NextActions     []string              `json:"next_actions"`
	DocumentProfile *core.DocumentProfile `json:"document_profile,omitempty"`
	Augmented       bool                  `json:"augmented"`
}

// Completer answers free-form prompts. *augment.Runner implements it.
type Completer interface {
	Available() bool
	Complete(ctx context.Context, key string, p augment.Prompt, c augment.Constraints) (string, error)
}

// Profiler detects a document profile. *engine.Engine implements it.
type Profiler interface {
	Profile(ctx context.Context, text string, lctx core.LintContext) (core.DocumentProfile, error)
}

// Config configures a Service.
type Config struct {
	Completer Completer // may be nil
	Profiler  Profiler  // required for DETECT_PROFILE
	Logger    *slog.Logger
}

// Service handles coach requests.
type Service struct {
	completer Completer
	profiler  Profiler
	logger    *slog.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{completer: cfg.Completer, profiler: cfg.Profiler, logger: logger}
}

// Handle validates and answers a request.
func (s *Service) Handle(ctx context.Context, req Request) (Response, error) {
	req, err := normalize(req)
	if err != nil {
		return Response{}, err
	}
	log := s.logger.With("mode", req.Mode, "profile", req.Profile)

	if req.Mode == ModeDetectProfile {
		return s.detectProfile(ctx, req)
	}

	if s.completer != nil && s.completer.Available() {
		if resp, ok := s.augmented(ctx, req, log); ok {
			return resp, nil
		}
	}
	return fallback(req), nil
}

func normalize(req Request) (Request, error) {
	req.Mode = Mode(strings.ToUpper(strings.TrimSpace(string(req.Mode))))
	switch req.Mode {
	case ModeDetectProfile, ModePlanSection, ModeReviewSection, ModeClarifyInstructions:
	default:
		return req, core.NewRequestError("mode", fmt.Sprintf("unsupported mode %q", req.Mode))
	}

	switch p := Profile(strings.ToLower(strings.TrimSpace(string(req.Profile)))); p {
	case "", ProfileCUN, "apa7_cun":
		req.Profile = ProfileCUN
	case ProfileAPA7Global, "apa7_international", "international":
		req.Profile = ProfileAPA7Global
	default:
		return req, core.NewRequestError("profile", fmt.Sprintf("unsupported profile %q", req.Profile))
	}

	switch req.Context.PaperProfile {
	case "":
		req.Context.PaperProfile = StudentPaper
	case StudentPaper, ProfessionalPaper:
	default:
		return req, core.NewRequestError("context.paper_profile", fmt.Sprintf("unsupported paper profile %q", req.Context.PaperProfile))
	}

	switch req.Mode {
	case ModeReviewSection:
		if strings.TrimSpace(req.StudentText) == "" {
			return req, core.NewRequestError("student_text", "required for REVIEW_SECTION")
		}
	case ModeDetectProfile:
		if strings.TrimSpace(req.DocumentText) == "" && strings.TrimSpace(req.StudentText) == "" {
			return req, core.NewRequestError("document_text", "required for DETECT_PROFILE")
		}
	}
	return req, nil
}

func (s *Service) detectProfile(ctx context.Context, req Request) (Response, error) {
	if s.profiler == nil {
		return Response{}, fmt.Errorf("coach: profile detection is not configured")
	}
	text := req.DocumentText
	if strings.TrimSpace(text) == "" {
		text = req.StudentText
	}
	lctx := req.LintContext
	if lctx.Institution == "" {
		lctx.Institution = req.Context.Institution
	}
	p, err := s.profiler.Profile(ctx, text, lctx)
	if err != nil {
		return Response{}, err
	}
	resp := newResponse(req)
	resp.DocumentProfile = &p
	resp.Guidance, resp.NextActions = profileGuidance(p)
	return resp, nil
}

// augmented asks the completer and reports false when the answer cannot
// be used.
func (s *Service) augmented(ctx context.Context, req Request, log *slog.Logger) (Response, bool) {
	prompt := buildPrompt(req)
	key, err := json.Marshal(req)
	if err != nil {
		return Response{}, false
	}
	raw, err := s.completer.Complete(ctx, "coach:"+string(key), prompt, augment.Constraints{
		Mode:         "coach",
		OutputFormat: "JSON_COACH_V1",
		JSON:         true,
	})
	if err != nil {
		log.Warn("coach augmentation failed, using templates", "error", err)
		return Response{}, false
	}
	resp, ok := parseAnswer(raw, req)
	if !ok {
		log.Warn("coach answer unusable, using templates")
		return Response{}, false
	}
	return resp, true
}

func newResponse(req Request) Response {
	return Response{
		Success:        true,
		Profile:        req.Profile,
		Mode:           req.Mode,
		Outline:        []string{},
		Guidance:       []string{},
		Feedback:       []FeedbackItem{},
		Clarifications: []string{},
		NextActions:    []string{},
	}
}

type answer struct {
	Outline        []string       `json:"outline"`
	Guidance       []string       `json:"guidance"`
	Feedback       []FeedbackItem `json:"feedback"`
	Clarifications []string       `json:"clarifications"`
	NextActions    []string       `json:"next_actions"`
}

// parseAnswer accepts a JSON object, possibly wrapped in prose, that fills
// the primary field of the mode.
func parseAnswer(raw string, req Request) (Response, bool) {
	start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Response{}, false
	}
	var a answer
	if err := json.Unmarshal([]byte(raw[start:end+1]), &a); err != nil {
		return Response{}, false
	}

	resp := newResponse(req)
	resp.Augmented = true
	resp.Guidance = nonEmpty(a.Guidance)
	resp.NextActions = nonEmpty(a.NextActions)
	switch req.Mode {
	case ModePlanSection:
		resp.Outline = nonEmpty(a.Outline)
		return resp, len(resp.Outline) > 0
	case ModeReviewSection:
		for _, f := range a.Feedback {
			t := strings.ToLower(strings.TrimSpace(f.Type))
			if (t == FeedbackStrength || t == FeedbackImprovement) && strings.TrimSpace(f.Message) != "" {
				resp.Feedback = append(resp.Feedback, FeedbackItem{Type: t, Message: strings.TrimSpace(f.Message)})
			}
		}
		return resp, len(resp.Feedback) > 0
	case ModeClarifyInstructions:
		resp.Clarifications = nonEmpty(a.Clarifications)
		return resp, len(resp.Clarifications) > 0
	}
	return Response{}, false
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
