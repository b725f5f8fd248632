package service

import (
	"context"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/internal/stats"
)

type (
	// TextResult lists the answers given to one text question.
	TextResult struct {
		QuestionID string   `json:"question_id"`
		Title      string   `json:"title"`
		Answers    []string `json:"answers"`
	}

	// ChoiceResult adds the pie chart slices to the option statistics of a choice question.
	ChoiceResult struct {
		stats.QuestionStats
		Pie []stats.Slice `json:"pie"`
	}

	// Results is the admin view of a form: summary, choice statistics and text answers.
	Results struct {
		FormID  string         `json:"form_id"`
		Title   string         `json:"title"`
		Summary stats.Summary  `json:"summary"`
		Choices []ChoiceResult `json:"choices"`
		Texts   []TextResult   `json:"texts"`
	}
)

// Results opens the form with the admin PIN and aggregates its responses.
func (s *Service) Results(ctx context.Context, formID, pin string) (*Results, error) {
	form, err := s.OpenAdmin(ctx, formID, pin)
	if err != nil {
		return nil, err
	}

	return BuildResults(form), nil
}

func BuildResults(form *entity.Form) *Results {
	responses := form.Responses()

	res := &Results{
		FormID:  form.ID(),
		Title:   form.Title,
		Summary: stats.Summarize(form),
		Choices: make([]ChoiceResult, 0),
		Texts:   make([]TextResult, 0),
	}

	for _, qs := range stats.Form(form) {
		res.Choices = append(res.Choices, ChoiceResult{
			QuestionStats: qs,
			Pie:           stats.PieSlices(qs.Options),
		})
	}

	for _, q := range form.Questions() {
		if q.Type().IsChoice() {
			continue
		}

		res.Texts = append(res.Texts, TextResult{
			QuestionID: q.ID(),
			Title:      q.Title,
			Answers:    stats.TextAnswers(q, responses),
		})
	}

	return res
}
