package entity

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// isoLayout matches the millisecond ISO-8601 timestamps already present in stored forms.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

type answerKind uint8

const (
	answerNone answerKind = iota
	answerText
	answerList
	answerLiteral
)

// Answer is one answer value: a string for text and single choice questions,
// a list of strings for multiple choice questions. The zero value means no answer.
//
// Numbers and booleans found in stored records are literals: they render as
// their JSON text but never match a choice option.
type Answer struct {
	kind    answerKind
	text    string
	list    []string
	literal []bool
}

func TextAnswer(s string) Answer {
	return Answer{kind: answerText, text: s}
}

func ListAnswer(values ...string) Answer {
	list := make([]string, len(values))
	copy(list, values)
	return Answer{kind: answerList, list: list}
}

// IsZero reports whether the answer is absent.
func (a Answer) IsZero() bool { return a.kind == answerNone }

// Text returns the string value, if the answer holds one. Literals are not strings.
func (a Answer) Text() (string, bool) {
	return a.text, a.kind == answerText
}

// List returns the string items of a list answer; literal items are left out.
func (a Answer) List() ([]string, bool) {
	if a.kind != answerList {
		return nil, false
	}

	out := make([]string, 0, len(a.list))
	for i, v := range a.list {
		if !a.isLiteral(i) {
			out = append(out, v)
		}
	}
	return out, true
}

// Blank reports whether the answer carries nothing usable:
// absent, whitespace-only text or an empty list.
func (a Answer) Blank() bool {
	switch a.kind {
	case answerText:
		return strings.TrimSpace(a.text) == ""
	case answerList:
		return len(a.list) == 0
	case answerLiteral:
		return false
	}
	return true
}

// String renders the answer for tables and CSV: empty when absent,
// list values joined with ", ".
func (a Answer) String() string {
	switch a.kind {
	case answerText, answerLiteral:
		return a.text
	case answerList:
		return strings.Join(a.list, ", ")
	}
	return ""
}

func (a Answer) isLiteral(i int) bool {
	return i < len(a.literal) && a.literal[i]
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case answerText:
		return json.Marshal(a.text)
	case answerLiteral:
		return []byte(a.text), nil
	case answerList:
		items := make([]json.RawMessage, 0, len(a.list))
		for i, v := range a.list {
			if a.isLiteral(i) {
				items = append(items, json.RawMessage(v))
				continue
			}
			b, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			items = append(items, b)
		}
		return json.Marshal(items)
	}
	return []byte("null"), nil
}

// UnmarshalJSON never fails on unexpected shapes. Numbers and booleans become
// literals, objects and nested lists are dropped from lists and decode as no answer alone.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Answer{}

	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			*a = TextAnswer(s)
		}
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}

		out := Answer{kind: answerList, list: make([]string, 0, len(items))}
		for _, item := range items {
			s, literal, ok := scalar(item)
			if !ok {
				continue
			}
			if literal && out.literal == nil {
				out.literal = make([]bool, len(out.list), len(items))
			}
			out.list = append(out.list, s)
			if out.literal != nil {
				out.literal = append(out.literal, literal)
			}
		}
		*a = out
	case '{', 'n':
	default:
		if s, literal, ok := scalar(data); ok && literal {
			*a = Answer{kind: answerLiteral, text: s}
		}
	}

	return nil
}

// scalar decodes a JSON string, number or boolean. literal is true for the latter two,
// which keep their JSON text.
func scalar(raw json.RawMessage) (s string, literal, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false, false
	}

	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, false
		}
		return s, false, true
	case 't', 'f', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if !json.Valid(raw) {
			return "", false, false
		}
		return string(raw), true, true
	}
	return "", false, false
}

// Response is one respondent's submission.
//
// Records written by older versions stored answers directly on the record
// instead of under "answers"; those are kept apart and only read through ResolveAnswer.
type Response struct {
	ID          string
	Answers     map[string]Answer
	SubmittedAt time.Time

	legacy map[string]Answer
}

type responseJSON struct {
	ID          string            `json:"id,omitempty"`
	Answers     map[string]Answer `json:"answers"`
	SubmittedAt string            `json:"submittedAt,omitempty"`
}

// keys of a stored record that never hold a flattened answer
var reservedResponseKeys = map[string]struct{}{
	"id":          {},
	"answers":     {},
	"submittedAt": {},
	"createdAt":   {},
}

// NewResponse builds a response from nested answers.
func NewResponse(answers map[string]Answer) Response {
	nested := make(map[string]Answer, len(answers))
	for k, v := range answers {
		nested[k] = v
	}
	return Response{Answers: nested}
}

// ResolveAnswer returns the answer to questionID, looking in the nested answers
// first and then in the flattened legacy layout. Absent in both means no answer.
func ResolveAnswer(r Response, questionID string) Answer {
	if a, ok := r.Answers[questionID]; ok && !a.IsZero() {
		return a
	}

	if a, ok := r.legacy[questionID]; ok {
		return a
	}

	return Answer{}
}

// Answer is shorthand for ResolveAnswer(r, questionID).
func (r Response) Answer(questionID string) Answer {
	return ResolveAnswer(r, questionID)
}

// IsLegacy reports whether the record carried flattened answers.
func (r Response) IsLegacy() bool {
	return len(r.legacy) > 0
}

// merged folds legacy answers into the nested map; nested values win.
func (r Response) merged() map[string]Answer {
	out := make(map[string]Answer, len(r.Answers)+len(r.legacy))
	for k, v := range r.legacy {
		out[k] = v
	}
	for k, v := range r.Answers {
		if v.IsZero() {
			if _, ok := out[k]; ok {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// MarshalJSON always writes the nested layout.
func (r Response) MarshalJSON() ([]byte, error) {
	out := responseJSON{
		ID:      r.ID,
		Answers: r.merged(),
	}
	if !r.SubmittedAt.IsZero() {
		out.SubmittedAt = formatISO(r.SubmittedAt)
	}

	return json.Marshal(out)
}

// UnmarshalJSON never fails on a valid JSON value: an entry that is not an
// object decodes as a response without answers.
func (r *Response) UnmarshalJSON(data []byte) error {
	out := Response{Answers: map[string]Answer{}}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		*r = out
		return nil
	}

	if raw, ok := fields["answers"]; ok {
		var nested map[string]Answer
		if err := json.Unmarshal(raw, &nested); err == nil && nested != nil {
			out.Answers = nested
		}
	}

	if raw, ok := fields["id"]; ok {
		_ = json.Unmarshal(raw, &out.ID)
	}

	out.SubmittedAt = rawTime(fields["submittedAt"])
	if out.SubmittedAt.IsZero() {
		out.SubmittedAt = rawTime(fields["createdAt"])
	}

	for key, raw := range fields {
		if _, reserved := reservedResponseKeys[key]; reserved {
			continue
		}

		var a Answer
		_ = a.UnmarshalJSON(raw)
		if out.legacy == nil {
			out.legacy = make(map[string]Answer)
		}
		out.legacy[key] = a
	}

	*r = out
	return nil
}

func formatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func parseISO(s string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func rawTime(raw json.RawMessage) time.Time {
	if raw == nil {
		return time.Time{}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}

	t, _ := parseISO(s)
	return t
}
