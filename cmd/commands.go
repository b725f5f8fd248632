package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/internal/service"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	errUsage        = errors.New("wrong arguments, see --help")
	errInvalidForm  = errors.New("form is not valid: it needs a title and at least one question, and every question and option needs text")
	errUnknownField = errors.New("unknown question")
)

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "list":
		return a.list(ctx)
	case "import":
		return a.importForm(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "submit":
		return a.submit(ctx, args)
	case "stats":
		return a.stats(ctx, args)
	case "export":
		return a.export(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "health":
		return a.checkHealth()
	default:
		return fmt.Errorf("unknown command %q: %w", name, errUsage)
	}
}

func (a *app) list(ctx context.Context) error {
	forms, err := a.service.GetAllForms(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQUESTIONS\tRESPONSES\tCREATED")
	for _, f := range forms {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			f.ID(), f.Title, len(f.Questions()), f.ResponseCount(), a.dates.FormatDate(f.CreatedAt()))
	}
	return tw.Flush()
}

func (a *app) importForm(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	form, err := entity.FormFromJSON(data)
	if err != nil {
		return fmt.Errorf("decode form %s: %w", args[0], err)
	}

	if !form.Validate() {
		return errInvalidForm
	}

	if err = a.service.SaveForm(ctx, form); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "saved form %s, admin PIN %s\n", form.ID(), form.PIN())
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	form, err := a.service.GetFormByID(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, form.Title)
	if form.Description != "" {
		fmt.Fprintln(a.out, form.Description)
	}

	for i, q := range form.Questions() {
		mark := ""
		if q.Required {
			mark = " *"
		}
		fmt.Fprintf(a.out, "\n%d. %s%s [%s, id %s]\n", i+1, q.Title, mark, q.Type(), q.ID())

		for _, opt := range q.Options() {
			fmt.Fprintf(a.out, "   - %s\n", opt)
		}
	}

	return nil
}

func (a *app) submit(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("submit", pflag.ContinueOnError)
	answers := flags.StringArrayP("answer", "a", nil, "answer as question-id=value; repeat for several checkbox options")
	file := flags.StringP("file", "f", "", "JSON file with the answers keyed by question id")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errUsage
	}

	form, err := a.service.GetFormByID(ctx, flags.Arg(0))
	if err != nil {
		return err
	}

	response, err := buildResponse(form, *file, *answers)
	if err != nil {
		return err
	}

	if missing := form.MissingRequired(response); len(missing) > 0 {
		titles := make([]string, 0, len(missing))
		for _, id := range missing {
			q, _ := form.Question(id)
			titles = append(titles, q.Title)
		}
		return fmt.Errorf("please answer the required questions: %s", strings.Join(titles, ", "))
	}

	if err = a.service.SaveResponse(ctx, form.ID(), response); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "response saved")
	return nil
}

// buildResponse merges the answers file with the --answer flags; flags win.
func buildResponse(form *entity.Form, file string, pairs []string) (entity.Response, error) {
	response := entity.NewResponse(nil)

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return response, err
		}

		var stored entity.Response
		if err = json.Unmarshal(data, &stored); err != nil {
			return response, fmt.Errorf("decode answers %s: %w", file, err)
		}
		for _, q := range form.Questions() {
			if a := entity.ResolveAnswer(stored, q.ID()); !a.IsZero() {
				response.Answers[q.ID()] = a
			}
		}
	}

	lists := make(map[string][]string)
	for _, pair := range pairs {
		id, value, ok := strings.Cut(pair, "=")
		if !ok {
			return response, fmt.Errorf("answer %q is not question-id=value: %w", pair, errUsage)
		}

		q, exists := form.Question(id)
		if !exists {
			return response, fmt.Errorf("%w: %s", errUnknownField, id)
		}

		if q.Type() == entity.MultipleChoice {
			lists[id] = append(lists[id], value)
			continue
		}
		response.Answers[id] = entity.TextAnswer(value)
	}

	for id, values := range lists {
		response.Answers[id] = entity.ListAnswer(values...)
	}

	return response, nil
}

func pinFlag(name string, args []string) (*pflag.FlagSet, *string, error) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	pin := flags.StringP("pin", "p", "", "admin PIN of the form")
	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}
	if flags.NArg() != 1 {
		return nil, nil, errUsage
	}
	return flags, pin, nil
}

func (a *app) stats(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("stats", pflag.ContinueOnError)
	pin := flags.StringP("pin", "p", "", "admin PIN of the form")
	asJSON := flags.Bool("json", false, "print the statistics as JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errUsage
	}

	res, err := a.service.Results(ctx, flags.Arg(0), *pin)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	a.printResults(res)
	return nil
}

func (a *app) printResults(res *service.Results) {
	fmt.Fprintf(a.out, "%s\nresponses: %d", res.Title, res.Summary.TotalResponses)
	if res.Summary.TotalResponses > 0 {
		fmt.Fprintf(a.out, ", last: %s", a.dates.FormatDate(res.Summary.LastSubmittedAt))
	}
	fmt.Fprintln(a.out)

	for _, c := range res.Choices {
		fmt.Fprintf(a.out, "\n%s\n", c.Title)

		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
		for _, o := range c.Options {
			fmt.Fprintf(tw, "  %s\t%d\t%d%%\t\n", o.Option, o.Count, o.Percentage)
		}
		_ = tw.Flush()
	}

	for _, t := range res.Texts {
		fmt.Fprintf(a.out, "\n%s\n", t.Title)
		for _, answer := range t.Answers {
			fmt.Fprintf(a.out, "  - %s\n", answer)
		}
	}
}

func (a *app) export(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("export", pflag.ContinueOnError)
	pin := flags.StringP("pin", "p", "", "admin PIN of the form")
	dir := flags.StringP("dir", "d", ".", "directory to write the CSV file to")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errUsage
	}

	tmp, err := os.CreateTemp(*dir, ".export-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	name, err := a.service.ExportResponses(ctx, flags.Arg(0), *pin, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	target := filepath.Join(*dir, filepath.Base(name))
	if err = os.Rename(tmp.Name(), target); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "exported to %s\n", target)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	flags, pin, err := pinFlag("delete", args)
	if err != nil {
		return err
	}

	id := flags.Arg(0)
	if _, err = a.service.OpenAdmin(ctx, id, *pin); err != nil {
		return err
	}

	if err = a.service.DeleteForm(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "deleted form %s\n", id)
	return nil
}

func (a *app) checkHealth() error {
	statuses, ok := a.health.Check()

	for _, s := range statuses {
		state := "ok"
		if !s.Healthy {
			state = "unavailable"
		}
		fmt.Fprintf(a.out, "%s: %s\n", s.Name, state)
	}

	if !ok {
		a.logger.Warn("unhealthy components", zap.Int("checked", len(statuses)))
		return errors.New("some components are unavailable")
	}
	return nil
}
