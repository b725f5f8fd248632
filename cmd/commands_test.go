package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Koyo-os/form-builder/internal/repository"
	"github.com/Koyo-os/form-builder/internal/service"
	"github.com/Koyo-os/form-builder/pkg/config"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const surveyJSON = `{
  "id": "f1",
  "title": "Survey",
  "description": "Quarterly check",
  "questions": [
    {"id": "color", "type": "radio", "title": "Color", "required": true, "options": ["Red", "Blue"]},
    {"id": "tags", "type": "checkbox", "title": "Tags", "required": false, "options": ["a", "b", "c"]},
    {"id": "note", "type": "text", "title": "Note", "required": false, "options": []}
  ],
  "createdAt": "2024-03-01T09:00:00.000Z",
  "pin": "4821",
  "responses": []
}`

func setupApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), repository.GormConfig("test"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	cfg := config.Default()
	cfg.Export.Timezone = "UTC"

	var out bytes.Buffer
	a, err := assemble(context.Background(), db, &cfg, logger.Nop(), &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.closer.Close() })

	return a, &out
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func importSurvey(t *testing.T, a *app, out *bytes.Buffer) {
	t.Helper()

	require.NoError(t, a.dispatch(context.Background(), "import", []string{writeTemp(t, "form.json", surveyJSON)}))
	assert.Contains(t, out.String(), "saved form f1, admin PIN 4821")
	out.Reset()
}

func TestImportListShow(t *testing.T) {
	a, out := setupApp(t)
	ctx := context.Background()
	importSurvey(t, a, out)

	require.NoError(t, a.dispatch(ctx, "list", nil))
	assert.Contains(t, out.String(), "f1")
	assert.Contains(t, out.String(), "Survey")
	assert.Contains(t, out.String(), "01. 03. 2024 09:00")
	out.Reset()

	require.NoError(t, a.dispatch(ctx, "show", []string{"f1"}))
	assert.Contains(t, out.String(), "1. Color * [radio, id color]")
	assert.Contains(t, out.String(), "   - Blue")
	assert.Contains(t, out.String(), "3. Note [text, id note]")
}

func TestImport_RejectsInvalidForm(t *testing.T) {
	a, _ := setupApp(t)
	path := writeTemp(t, "form.json", `{"id":"f2","title":"  ","questions":[]}`)

	err := a.dispatch(context.Background(), "import", []string{path})

	assert.ErrorIs(t, err, errInvalidForm)
	_, err = a.service.GetFormByID(context.Background(), "f2")
	assert.ErrorIs(t, err, service.ErrFormNotFound)
}

func TestSubmit_RequiredAnswerMissing(t *testing.T) {
	a, out := setupApp(t)
	importSurvey(t, a, out)

	err := a.dispatch(context.Background(), "submit", []string{"f1", "--answer", "note=hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Color")

	form, err := a.service.GetFormByID(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, 0, form.ResponseCount())
}

func TestSubmit_UnknownQuestion(t *testing.T) {
	a, out := setupApp(t)
	importSurvey(t, a, out)

	err := a.dispatch(context.Background(), "submit", []string{"f1", "-a", "color=Red", "-a", "size=XL"})

	assert.ErrorIs(t, err, errUnknownField)
}

func TestSubmitStatsExportDelete(t *testing.T) {
	a, out := setupApp(t)
	ctx := context.Background()
	importSurvey(t, a, out)

	require.NoError(t, a.dispatch(ctx, "submit", []string{"f1", "-a", "color=Red", "-a", "tags=a", "-a", "tags=c", "-a", "note=fine, thanks"}))
	answers := writeTemp(t, "answers.json", `{"color":"Blue","tags":["b"]}`)
	require.NoError(t, a.dispatch(ctx, "submit", []string{"f1", "--file", answers}))
	require.NoError(t, a.dispatch(ctx, "submit", []string{"f1", "-a", "color=Red"}))
	out.Reset()

	require.NoError(t, a.dispatch(ctx, "stats", []string{"f1", "--pin", "4821", "--json"}))
	var res service.Results
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 3, res.Summary.TotalResponses)
	require.Len(t, res.Choices, 2)
	assert.Equal(t, "Red", res.Choices[0].Options[0].Option)
	assert.Equal(t, 2, res.Choices[0].Options[0].Count)
	assert.Equal(t, 67, res.Choices[0].Options[0].Percentage)
	require.Len(t, res.Texts, 1)
	assert.Equal(t, []string{"fine, thanks"}, res.Texts[0].Answers)
	out.Reset()

	require.NoError(t, a.dispatch(ctx, "stats", []string{"f1", "-p", "4821"}))
	assert.Contains(t, out.String(), "responses: 3")
	assert.Contains(t, out.String(), "67%")
	out.Reset()

	dir := t.TempDir()
	require.NoError(t, a.dispatch(ctx, "export", []string{"f1", "--pin", "4821", "--dir", dir}))
	data, err := os.ReadFile(filepath.Join(dir, "Survey_odpovedi.csv"))
	require.NoError(t, err)
	rows := strings.Split(string(data), "\r\n")
	require.Len(t, rows, 4)
	assert.Equal(t, "\ufeff#,Datum,Color,Tags,Note", rows[0])
	assert.True(t, strings.HasSuffix(rows[1], `,Red,"a, c","fine, thanks"`))
	assert.True(t, strings.HasSuffix(rows[2], ",Blue,b,"))

	assert.ErrorIs(t, a.dispatch(ctx, "delete", []string{"f1", "--pin", "0000"}), service.ErrInvalidPIN)
	require.NoError(t, a.dispatch(ctx, "delete", []string{"f1", "--pin", "4821"}))
	_, err = a.service.GetFormByID(ctx, "f1")
	assert.ErrorIs(t, err, service.ErrFormNotFound)
}

func TestExport_NoResponses(t *testing.T) {
	a, out := setupApp(t)
	importSurvey(t, a, out)
	dir := t.TempDir()

	err := a.dispatch(context.Background(), "export", []string{"f1", "-p", "4821", "-d", dir})

	assert.ErrorIs(t, err, service.ErrNoResponses)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHealth(t *testing.T) {
	a, out := setupApp(t)

	require.NoError(t, a.dispatch(context.Background(), "health", nil))
	assert.Equal(t, "storage: ok\n", out.String())
}

func TestDispatch_UnknownCommand(t *testing.T) {
	a, _ := setupApp(t)

	assert.ErrorIs(t, a.dispatch(context.Background(), "publish", nil), errUsage)
	assert.ErrorIs(t, a.dispatch(context.Background(), "show", nil), errUsage)
}

func TestRun_UsageWithoutCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 2, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: formbuilder")

	stderr.Reset()
	assert.Equal(t, 0, run(context.Background(), []string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Commands:")
}
