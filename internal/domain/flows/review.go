package flows

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/hrdesk/internal/domain/form"
	"github.com/okian/hrdesk/internal/domain/model"
	"github.com/okian/hrdesk/internal/domain/scoring"
	"github.com/okian/hrdesk/internal/domain/types"
)

// ReviewDetail is one competency line of a review.
type ReviewDetail struct {
	ID             string `json:"id"`
	CompetencyName string `json:"competency_name"`
	Category       string `json:"competency_category_display"`
	Score          int    `json:"score"`
	Comment        string `json:"comment"`
}

// Review is a performance review with its details.
type Review struct {
	ID               string             `json:"id"`
	EmployeeName     string             `json:"employee_name"`
	PeriodName       string             `json:"period_name"`
	EvaluatorName    string             `json:"evaluator_name"`
	Status           model.ReviewStatus `json:"status"`
	FinalScore       *float64           `json:"final_score"`
	FeedbackManager  string             `json:"feedback_manager"`
	FeedbackEmployee string             `json:"feedback_employee"`
	Details          []ReviewDetail     `json:"details"`
}

// ParseReview reads a review record as returned by the backend.
func ParseReview(it model.Item) Review {
	r := Review{
		ID:               it.ID(),
		EmployeeName:     str(it, "employee_name"),
		PeriodName:       str(it, "period_name"),
		EvaluatorName:    str(it, "evaluator_name"),
		Status:           model.ReviewStatus(str(it, "status")),
		FeedbackManager:  str(it, "feedback_manager"),
		FeedbackEmployee: str(it, "feedback_employee"),
	}
	if v, err := strconv.ParseFloat(str(it, "final_score"), 64); err == nil {
		r.FinalScore = &v
	}
	raw, _ := it["details"].([]any)
	for _, d := range raw {
		obj, ok := d.(map[string]any)
		if !ok {
			continue
		}
		item := model.Item(obj)
		score, _ := strconv.Atoi(str(item, "score"))
		r.Details = append(r.Details, ReviewDetail{
			ID:             item.ID(),
			CompetencyName: str(item, "competency_name"),
			Category:       str(item, "competency_category_display"),
			Score:          score,
			Comment:        str(item, "comment"),
		})
	}
	return r
}

// Average previews the final score from the scored details.
func (r Review) Average() (float64, bool) {
	scores := make([]int, len(r.Details))
	for i, d := range r.Details {
		scores[i] = d.Score
	}
	return scoring.Average(scores)
}

// Editable reports whether the manager may still change scores.
func (r Review) Editable() bool { return r.Status == model.ReviewDraft }

// ReviewAction is what the user asked to do with a review.
type ReviewAction string

const (
	ReviewSaveDraft ReviewAction = "draft"
	ReviewSubmit    ReviewAction = "submit"
	ReviewAccept    ReviewAction = "accept"
)

// DetailEdit is the submitted score and comment of one detail.
type DetailEdit struct {
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// ReviewInput is a review save request.
type ReviewInput struct {
	Action   ReviewAction          `json:"action"`
	Feedback string                `json:"feedback"`
	Details  map[string]DetailEdit `json:"details"`
}

// ReviewPlan splits a save into detail writes and the header write that
// must only run once every detail write succeeded.
type ReviewPlan struct {
	Details []model.Mutation
	Header  model.Mutation
}

// PlanReview validates input against the review's status and builds the
// writes. Field errors are keyed by detail id, or "feedback".
func PlanReview(r Review, in ReviewInput) (ReviewPlan, types.FieldErrors, error) {
	header := model.Mutation{Key: "review", Method: "PATCH", Path: ReviewsPath + r.ID + "/"}
	switch in.Action {
	case ReviewSaveDraft, ReviewSubmit:
		if !r.Editable() {
			return ReviewPlan{}, nil, fmt.Errorf("%w: %s on review %s in status %s", ErrTransition, in.Action, r.ID, r.Status)
		}
	case ReviewAccept:
		if r.Status != model.ReviewSent {
			return ReviewPlan{}, nil, fmt.Errorf("%w: accept on review %s in status %s", ErrTransition, r.ID, r.Status)
		}
		header.Payload = map[string]any{
			"feedback_employee": in.Feedback,
			"status":            string(model.ReviewAccepted),
		}
		return ReviewPlan{Header: header}, nil, nil
	default:
		return ReviewPlan{}, nil, fmt.Errorf("%w: unknown review action %q", ErrInvalidInput, in.Action)
	}

	final := in.Action == ReviewSubmit
	errs := types.FieldErrors{}
	plan := ReviewPlan{}
	for _, d := range r.Details {
		edit, ok := in.Details[d.ID]
		if !ok {
			edit = DetailEdit{Score: d.Score, Comment: d.Comment}
		}
		if msg := scoring.CheckScore(edit.Score, !final); msg != "" {
			errs[d.ID] = msg
			continue
		}
		if final && strings.TrimSpace(edit.Comment) == "" {
			errs[d.ID] = form.MsgRequired
			continue
		}
		if ok {
			plan.Details = append(plan.Details, model.Mutation{
				Key:     d.ID,
				Method:  "PATCH",
				Path:    ReviewDetailsPath + d.ID + "/",
				Payload: map[string]any{"score": edit.Score, "comment": edit.Comment},
			})
		}
	}
	for id := range in.Details {
		if !r.hasDetail(id) {
			errs[id] = "Competencia desconocida."
		}
	}
	if final && strings.TrimSpace(in.Feedback) == "" {
		errs["feedback"] = form.MsgRequired
	}
	if !errs.Empty() {
		return ReviewPlan{}, errs, nil
	}
	header.Payload = map[string]any{"feedback_manager": in.Feedback}
	if final {
		header.Payload["status"] = string(model.ReviewSent)
	}
	plan.Header = header
	return plan, nil, nil
}

func (r Review) hasDetail(id string) bool {
	for _, d := range r.Details {
		if d.ID == id {
			return true
		}
	}
	return false
}
