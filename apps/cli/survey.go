package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/survey"
)

func (cli *commandLine) listSurveys() error {
	surveys, err := cli.surveys.Query(cli.ctx)
	if err != nil {
		return err
	}
	if len(surveys) == 0 {
		cli.println("No surveys available.")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE")
	for _, s := range surveys {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, core.Truncate(s.Title, 50), s.Type)
	}
	return tw.Flush()
}

// takeSurvey asks the unanswered questions, saving the progress after each answer.
// Closing the input leaves the survey resumable.
func (cli *commandLine) takeSurvey(id core.ID, restart bool) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	s, err := cli.surveys.Get(cli.ctx, id)
	if err != nil {
		return err
	}

	p, err := cli.surveys.LoadProgress(cli.ctx)
	switch {
	case errors.Is(err, survey.ErrNoProgress):
		p = survey.NewProgress(s.ID)
	case err != nil:
		return err
	case restart:
		if err := cli.surveys.ClearProgress(cli.ctx); err != nil {
			return err
		}
		p = survey.NewProgress(s.ID)
	case p.SurveyID != s.ID:
		p = survey.NewProgress(s.ID)
	default:
		cli.printf("Resuming: %d/%d questions answered.\n", p.Answered(s), len(s.Questions))
	}

	cli.printf("%s\n", s.Title)
	if s.Description != "" {
		cli.println(s.Description)
	}

	lines, done := cli.readLines()
	defer close(done)

	for i, q := range s.Questions {
		if _, ok := p.Answers[q.ID]; ok {
			continue
		}
		p.Current = i
		cli.printf("\n%d/%d. %s\n", i+1, len(s.Questions), q.Text)
		for j, opt := range q.Options {
			cli.printf("  %d) %s\n", j+1, opt.Text)
		}
		for answered := false; !answered; {
			cli.print("> ")
			line, ok := <-lines
			if !ok {
				cli.printf("\nProgress saved, resume with: lms survey -id %s\n", s.ID)
				return nil
			}
			n, err := strconv.Atoi(line)
			if err != nil || n < 1 || n > len(q.Options) {
				cli.printf("Please enter a number between 1 and %d.\n", len(q.Options))
				continue
			}
			p.Answer(q.ID, q.Options[n-1].ID)
			p.Current = i + 1
			if err := cli.surveys.SaveProgress(cli.ctx, p); err != nil {
				cli.logger.Warn("saving survey progress", err)
			}
			answered = true
		}
	}

	out, err := cli.surveys.Submit(cli.ctx, s, p)
	if err != nil {
		cli.printf("Your answers are saved, submit them later with: lms survey -id %s\n", s.ID)
		return err
	}
	cli.printf("\nTotal score: %d\nRisk level: %s\n", out.TotalScore, strings.ToLower(out.RiskLevel))
	if out.Recommendation != "" {
		cli.println(out.Recommendation)
	}
	return nil
}

func (cli *commandLine) surveyResults() error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	outcomes, err := cli.surveys.Results(cli.ctx)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		cli.println("No survey results yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SURVEY\tSCORE\tRISK\tSUBMITTED")
	for _, o := range outcomes {
		title := o.SurveyTitle
		if title == "" {
			title = string(o.SurveyID)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", core.Truncate(title, 50), o.TotalScore, strings.ToLower(o.RiskLevel), humanize.Time(o.SubmittedAt))
	}
	return tw.Flush()
}
