package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MinChoiceOptions is the smallest option count a choice question may hold.
const MinChoiceOptions = 2

var ErrUnknownQuestionType = errors.New("unknown question type")

// QuestionType is the closed set of question kinds.
type QuestionType int

const (
	Text QuestionType = iota + 1
	SingleChoice
	MultipleChoice
)

// storage tokens, kept for compatibility with persisted forms
const (
	tokenText     = "text"
	tokenRadio    = "radio"
	tokenCheckbox = "checkbox"
)

// ParseQuestionType maps a persisted type token ("text", "radio", "checkbox") to a QuestionType.
func ParseQuestionType(token string) (QuestionType, error) {
	switch token {
	case tokenText:
		return Text, nil
	case tokenRadio:
		return SingleChoice, nil
	case tokenCheckbox:
		return MultipleChoice, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownQuestionType, token)
}

func (t QuestionType) valid() bool {
	switch t {
	case Text, SingleChoice, MultipleChoice:
		return true
	}
	return false
}

// IsChoice reports whether answers pick from declared options.
func (t QuestionType) IsChoice() bool {
	return t == SingleChoice || t == MultipleChoice
}

// String returns the storage token of the type.
func (t QuestionType) String() string {
	switch t {
	case Text:
		return tokenText
	case SingleChoice:
		return tokenRadio
	case MultipleChoice:
		return tokenCheckbox
	}
	return fmt.Sprintf("QuestionType(%d)", int(t))
}

func (t QuestionType) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownQuestionType, int(t))
	}
	return []byte(t.String()), nil
}

func (t *QuestionType) UnmarshalText(b []byte) error {
	parsed, err := ParseQuestionType(string(b))
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}

type (
	// QuestionSeed carries optional initial data for a new question.
	// A zero ID gets a generated one.
	QuestionSeed struct {
		ID       string
		Title    string
		Required bool
		Options  []string
	}

	// QuestionPatch is a partial update; nil fields are left unchanged.
	QuestionPatch struct {
		Title    *string
		Required *bool
		Options  []string
	}

	// Question is a single prompt of a form. Its ID and type are fixed at creation.
	Question struct {
		id       string
		kind     QuestionType
		Title    string
		Required bool
		options  []string
	}

	questionJSON struct {
		ID       string       `json:"id"`
		Type     QuestionType `json:"type"`
		Title    string       `json:"title"`
		Required bool         `json:"required"`
		Options  []string     `json:"options"`
	}
)

// NewQuestion creates a question of the given type.
// Choice questions start with two empty options unless the seed provides them,
// and are padded with empty options up to MinChoiceOptions. Text questions never hold options.
func NewQuestion(kind QuestionType, seed QuestionSeed) (*Question, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownQuestionType, int(kind))
	}

	id := seed.ID
	if id == "" {
		id = NewID()
	}

	q := &Question{
		id:       id,
		kind:     kind,
		Title:    seed.Title,
		Required: seed.Required,
		options:  []string{},
	}

	if kind.IsChoice() {
		q.options = padOptions(seed.Options)
	}

	return q, nil
}

func NewTextQuestion(seed QuestionSeed) *Question {
	q, _ := NewQuestion(Text, seed)
	return q
}

func NewSingleChoiceQuestion(seed QuestionSeed) *Question {
	q, _ := NewQuestion(SingleChoice, seed)
	return q
}

func NewMultipleChoiceQuestion(seed QuestionSeed) *Question {
	q, _ := NewQuestion(MultipleChoice, seed)
	return q
}

func padOptions(in []string) []string {
	out := make([]string, 0, max(len(in), MinChoiceOptions))
	out = append(out, in...)
	for len(out) < MinChoiceOptions {
		out = append(out, "")
	}
	return out
}

func (q *Question) ID() string { return q.id }

func (q *Question) Type() QuestionType { return q.kind }

// Options returns a copy of the declared options.
func (q *Question) Options() []string {
	out := make([]string, len(q.options))
	copy(out, q.options)
	return out
}

// AddOption appends an empty option. No-op for text questions.
func (q *Question) AddOption() {
	switch q.kind {
	case SingleChoice, MultipleChoice:
		q.options = append(q.options, "")
	case Text:
	}
}

// RemoveOption deletes the option at index. It refuses, returning false, for text
// questions, out of range indexes and when the question would drop below MinChoiceOptions.
func (q *Question) RemoveOption(index int) bool {
	switch q.kind {
	case Text:
		return false
	case SingleChoice, MultipleChoice:
	}

	if len(q.options) <= MinChoiceOptions || index < 0 || index >= len(q.options) {
		return false
	}

	q.options = append(q.options[:index], q.options[index+1:]...)
	return true
}

// UpdateOption replaces the option text at index. Refused for text questions and out of range indexes.
func (q *Question) UpdateOption(index int, text string) bool {
	switch q.kind {
	case Text:
		return false
	case SingleChoice, MultipleChoice:
	}

	if index < 0 || index >= len(q.options) {
		return false
	}

	q.options[index] = text
	return true
}

// Validate reports whether the title is non-blank and, for choice questions, every option is non-blank.
func (q *Question) Validate() bool {
	if strings.TrimSpace(q.Title) == "" {
		return false
	}

	switch q.kind {
	case Text:
		return true
	case SingleChoice, MultipleChoice:
		for _, opt := range q.options {
			if strings.TrimSpace(opt) == "" {
				return false
			}
		}
		return true
	}

	return false
}

// Apply merges a patch into the question. An options patch is ignored for text
// questions and when it holds fewer than MinChoiceOptions entries.
func (q *Question) Apply(p QuestionPatch) {
	if p.Title != nil {
		q.Title = *p.Title
	}
	if p.Required != nil {
		q.Required = *p.Required
	}

	if p.Options == nil || !q.kind.IsChoice() || len(p.Options) < MinChoiceOptions {
		return
	}

	q.options = make([]string, len(p.Options))
	copy(q.options, p.Options)
}

// Clone returns a deep copy.
func (q *Question) Clone() *Question {
	c := *q
	c.options = q.Options()
	return &c
}

func (q *Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(questionJSON{
		ID:       q.id,
		Type:     q.kind,
		Title:    q.Title,
		Required: q.Required,
		Options:  q.Options(),
	})
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := NewQuestion(raw.Type, QuestionSeed{
		ID:       raw.ID,
		Title:    raw.Title,
		Required: raw.Required,
		Options:  raw.Options,
	})
	if err != nil {
		return err
	}

	*q = *parsed
	return nil
}

// QuestionFromJSON decodes a persisted question record.
func QuestionFromJSON(data []byte) (*Question, error) {
	q := new(Question)
	if err := json.Unmarshal(data, q); err != nil {
		return nil, err
	}
	return q, nil
}
