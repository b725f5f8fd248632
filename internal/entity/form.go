// Package entity defines the form data model: forms, questions, answers and responses,
// and their persisted JSON shape.
package entity

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNilQuestion         = errors.New("question can not be nil")
	ErrDuplicateQuestionID = errors.New("duplicate question id")
	ErrFormNotFound        = errors.New("form not found")
)

// now is swapped in tests
var now = time.Now

type (
	// FormSeed carries optional initial data for a form.
	// Zero ID, CreatedAt and PIN are generated.
	FormSeed struct {
		ID          string
		Title       string
		Description string
		Questions   []*Question
		CreatedAt   time.Time
		PIN         string
		Responses   []Response
	}

	// Form is a survey: metadata, ordered questions, admin PIN and collected responses.
	Form struct {
		id          string
		Title       string
		Description string
		questions   []*Question
		createdAt   time.Time
		pin         string
		responses   []Response
	}

	formJSON struct {
		ID          string      `json:"id"`
		Title       string      `json:"title"`
		Description string      `json:"description"`
		Questions   []*Question `json:"questions"`
		CreatedAt   string      `json:"createdAt"`
		PIN         string      `json:"pin"`
		Responses   []Response  `json:"responses"`
	}

	// storedFormJSON accepts the adminPin field of older storage variants.
	storedFormJSON struct {
		formJSON
		AdminPIN string `json:"adminPin"`
	}
)

// NewForm creates a form from a seed. It fails on nil or duplicate-ID questions.
func NewForm(seed FormSeed) (*Form, error) {
	f := &Form{
		id:          seed.ID,
		Title:       seed.Title,
		Description: seed.Description,
		createdAt:   seed.CreatedAt,
		pin:         seed.PIN,
		questions:   make([]*Question, 0, len(seed.Questions)),
		responses:   make([]Response, 0, len(seed.Responses)),
	}

	if f.id == "" {
		f.id = NewID()
	}
	if f.createdAt.IsZero() {
		f.createdAt = now()
	}
	if f.pin == "" {
		f.pin = NewPIN()
	}

	for _, q := range seed.Questions {
		if err := f.AddQuestion(q); err != nil {
			return nil, err
		}
	}

	f.responses = append(f.responses, seed.Responses...)

	return f, nil
}

func (f *Form) ID() string { return f.id }

func (f *Form) PIN() string { return f.pin }

func (f *Form) CreatedAt() time.Time { return f.createdAt }

// Questions returns the questions in display order.
func (f *Form) Questions() []*Question {
	out := make([]*Question, len(f.questions))
	copy(out, f.questions)
	return out
}

// Question looks a question up by ID.
func (f *Form) Question(id string) (*Question, bool) {
	for _, q := range f.questions {
		if q.id == id {
			return q, true
		}
	}
	return nil, false
}

// AddQuestion appends a question; IDs must be unique within the form.
func (f *Form) AddQuestion(q *Question) error {
	if q == nil {
		return ErrNilQuestion
	}

	if _, exists := f.Question(q.id); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateQuestionID, q.id)
	}

	f.questions = append(f.questions, q)
	return nil
}

// RemoveQuestion drops the question with the given ID and reports whether it existed.
func (f *Form) RemoveQuestion(id string) bool {
	kept := f.questions[:0]
	removed := false

	for _, q := range f.questions {
		if q.id == id {
			removed = true
			continue
		}
		kept = append(kept, q)
	}

	// clear the tail so dropped questions can be collected
	for i := len(kept); i < len(f.questions); i++ {
		f.questions[i] = nil
	}

	f.questions = kept
	return removed
}

// UpdateQuestion merges patch into the matching question. Returns false when no question has that ID.
func (f *Form) UpdateQuestion(id string, patch QuestionPatch) bool {
	q, ok := f.Question(id)
	if !ok {
		return false
	}

	q.Apply(patch)
	return true
}

// AddResponse stamps the submission time and appends the response.
// The answers are not checked against required questions; see MissingRequired.
func (f *Form) AddResponse(r Response) Response {
	r.SubmittedAt = now()
	f.responses = append(f.responses, r)
	return r
}

// AppendResponse appends the response as is, keeping its submission time.
func (f *Form) AppendResponse(r Response) {
	f.responses = append(f.responses, r)
}

// Responses returns the responses in submission order.
func (f *Form) Responses() []Response {
	out := make([]Response, len(f.responses))
	copy(out, f.responses)
	return out
}

func (f *Form) ResponseCount() int { return len(f.responses) }

// Validate reports whether the form can be saved or previewed: a non-blank
// title and at least one question, every one of them valid.
func (f *Form) Validate() bool {
	if strings.TrimSpace(f.Title) == "" {
		return false
	}

	if len(f.questions) == 0 {
		return false
	}

	for _, q := range f.questions {
		if !q.Validate() {
			return false
		}
	}

	return true
}

// VerifyPIN compares pin with the admin PIN in constant time.
func (f *Form) VerifyPIN(pin string) bool {
	return subtle.ConstantTimeCompare([]byte(f.pin), []byte(pin)) == 1
}

// MissingRequired returns the IDs of required questions that r leaves blank, in question order.
func (f *Form) MissingRequired(r Response) []string {
	var missing []string

	for _, q := range f.questions {
		if q.Required && ResolveAnswer(r, q.id).Blank() {
			missing = append(missing, q.id)
		}
	}

	return missing
}

func (f *Form) MarshalJSON() ([]byte, error) {
	out := formJSON{
		ID:          f.id,
		Title:       f.Title,
		Description: f.Description,
		Questions:   f.questions,
		CreatedAt:   formatISO(f.createdAt),
		PIN:         f.pin,
		Responses:   f.responses,
	}

	if out.Questions == nil {
		out.Questions = []*Question{}
	}
	if out.Responses == nil {
		out.Responses = []Response{}
	}

	return json.Marshal(out)
}

func (f *Form) UnmarshalJSON(data []byte) error {
	var raw storedFormJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	pin := raw.PIN
	if pin == "" {
		pin = raw.AdminPIN
	}

	createdAt, _ := parseISO(raw.CreatedAt)

	parsed, err := NewForm(FormSeed{
		ID:          raw.ID,
		Title:       raw.Title,
		Description: raw.Description,
		Questions:   raw.Questions,
		CreatedAt:   createdAt,
		PIN:         pin,
		Responses:   raw.Responses,
	})
	if err != nil {
		return err
	}

	*f = *parsed
	return nil
}

// FormFromJSON decodes a persisted form record.
func FormFromJSON(data []byte) (*Form, error) {
	f := new(Form)
	if err := json.Unmarshal(data, f); err != nil {
		return nil, err
	}
	return f, nil
}
