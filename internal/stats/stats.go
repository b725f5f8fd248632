// Package stats aggregates the responses of a form into per-option counts and
// percentages for tables, bar and pie charts.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
)

// NoTextAnswers is shown in place of an empty text answer list.
const NoTextAnswers = "Žádné textové odpovědi"

type (
	// OptionStat is the share of responses that picked one option.
	OptionStat struct {
		Option     string `json:"option"`
		Count      int    `json:"count"`
		Percentage int    `json:"percentage"`
	}

	// QuestionStats holds the option statistics of one choice question.
	QuestionStats struct {
		QuestionID string       `json:"question_id"`
		Title      string       `json:"title"`
		Total      int          `json:"total"`
		Options    []OptionStat `json:"options"`
	}

	// Slice is one pie chart segment; Percentage is renormalised over the visible slices.
	Slice struct {
		Option     string  `json:"option"`
		Count      int     `json:"count"`
		Percentage float64 `json:"percentage"`
	}

	// Summary is the header of the results view.
	Summary struct {
		TotalResponses  int       `json:"total_responses"`
		LastSubmittedAt time.Time `json:"last_submitted_at"`
	}
)

// Options counts how many responses picked each declared option of a choice question,
// sorted by count descending. Answers that match no declared option are ignored and a
// multiple choice answer counts each option at most once. Text questions yield nil.
func Options(q *entity.Question, responses []entity.Response) []OptionStat {
	if q == nil || !q.Type().IsChoice() {
		return nil
	}

	options := q.Options()
	stats := make([]OptionStat, len(options))
	index := make(map[string]int, len(options))

	for i, opt := range options {
		stats[i] = OptionStat{Option: opt}
		// duplicate option texts land in the first bucket
		if _, seen := index[opt]; !seen {
			index[opt] = i
		}
	}

	for _, r := range responses {
		answer := entity.ResolveAnswer(r, q.ID())

		switch q.Type() {
		case entity.SingleChoice:
			if text, ok := answer.Text(); ok && text != "" {
				if i, ok := index[text]; ok {
					stats[i].Count++
				}
			}
		case entity.MultipleChoice:
			values, ok := answer.List()
			if !ok {
				continue
			}

			picked := make(map[int]struct{}, len(values))
			for _, v := range values {
				if i, ok := index[v]; ok {
					picked[i] = struct{}{}
				}
			}
			for i := range picked {
				stats[i].Count++
			}
		case entity.Text:
		}
	}

	total := len(responses)
	for i := range stats {
		stats[i].Percentage = percentage(stats[i].Count, total)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})

	return stats
}

func percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// Form computes option statistics for every choice question of f, in question order.
func Form(f *entity.Form) []QuestionStats {
	responses := f.Responses()
	out := make([]QuestionStats, 0)

	for _, q := range f.Questions() {
		if !q.Type().IsChoice() {
			continue
		}

		out = append(out, QuestionStats{
			QuestionID: q.ID(),
			Title:      q.Title,
			Total:      len(responses),
			Options:    Options(q, responses),
		})
	}

	return out
}

// TextAnswers lists the non-blank answers to a text question in response order.
// When none remain the list holds only NoTextAnswers.
func TextAnswers(q *entity.Question, responses []entity.Response) []string {
	var out []string

	for _, r := range responses {
		text := entity.ResolveAnswer(r, q.ID()).String()
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, text)
	}

	if len(out) == 0 {
		return []string{NoTextAnswers}
	}

	return out
}

// PieSlices drops zero-percentage entries and rescales the rest to sum to 100.
func PieSlices(stats []OptionStat) []Slice {
	total := 0
	for _, s := range stats {
		if s.Percentage > 0 {
			total += s.Percentage
		}
	}

	if total == 0 {
		return []Slice{}
	}

	out := make([]Slice, 0, len(stats))
	for _, s := range stats {
		if s.Percentage <= 0 {
			continue
		}

		out = append(out, Slice{
			Option:     s.Option,
			Count:      s.Count,
			Percentage: float64(s.Percentage) / float64(total) * 100,
		})
	}

	return out
}

// Summarize returns the response count and the time of the last response.
func Summarize(f *entity.Form) Summary {
	responses := f.Responses()
	s := Summary{TotalResponses: len(responses)}

	if len(responses) > 0 {
		s.LastSubmittedAt = responses[len(responses)-1].SubmittedAt
	}

	return s
}
