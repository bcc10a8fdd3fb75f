package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/course"
)

// listCourses never fails on backend errors: the catalog degrades to an empty list.
func (cli *commandLine) listCourses(search, courseType, ageGroup string) error {
	courses, err := cli.courses.Query(cli.ctx, course.QueryFilter{CourseType: courseType, AgeGroup: ageGroup})
	if err != nil {
		cli.logger.Warn("loading catalog", err)
		cli.println("Could not load the catalog, try again later.")
		courses = nil
	}
	if search != "" {
		courses = course.Search(courses, search)
	}
	if len(courses) == 0 {
		cli.println("No courses found.")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tAGE GROUP\tCHAPTERS")
	for _, c := range courses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", c.ID, core.Truncate(c.Title, 40), c.CourseType, c.AgeGroup, c.ChapterCount)
	}
	return tw.Flush()
}

func (cli *commandLine) showCourse(id core.ID) error {
	c, err := cli.courses.Get(cli.ctx, id)
	if err != nil {
		return err
	}
	chapters, err := cli.courses.Chapters(cli.ctx, id)
	if err != nil {
		return err
	}

	var prog course.Progress
	if cli.session.IsAuthenticated() {
		// not enrolled: no marks
		prog, _ = cli.courses.Progress(cli.ctx, id)
	}

	cli.printf("%s (%s, %s)\n", c.Title, c.CourseType, c.AgeGroup)
	if c.Description != "" {
		cli.println(c.Description)
	}
	for i, ch := range chapters {
		cli.printf("\n%d. %s\n", i+1, ch.Title)
		for _, l := range ch.Lessons {
			mark := " "
			if prog.HasCompleted(l.ID) {
				mark = "x"
			}
			line := fmt.Sprintf("   [%s] %s (%d min) [%s]", mark, l.Title, l.DurationMinutes, l.ID)
			if l.QuizID != "" {
				line += " + quiz " + string(l.QuizID)
			}
			cli.println(line)
		}
	}
	if prog.TotalLessons > 0 {
		cli.printf("\nProgress: %s\n", progressLine(prog))
	}
	return nil
}

func (cli *commandLine) enroll(id core.ID) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	e, err := cli.courses.Enroll(cli.ctx, id)
	if err != nil {
		if errors.Is(err, course.ErrAlreadyEnrolled) {
			cli.println("You are already enrolled in this course.")
			return nil
		}
		return err
	}
	title := string(id)
	if e.Course != nil {
		title = e.Course.Title
	}
	cli.printf("Enrolled in %s.\n", title)
	return nil
}

func (cli *commandLine) drop(id core.ID) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	if err := cli.courses.Drop(cli.ctx, id); err != nil {
		return err
	}
	cli.println("Course dropped.")
	return nil
}

func (cli *commandLine) enrollments() error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	enrollments, err := cli.courses.Enrollments(cli.ctx)
	if err != nil {
		return err
	}
	if len(enrollments) == 0 {
		cli.println("You are not enrolled in any course.")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COURSE\tTITLE\tSTATUS\tPROGRESS\tENROLLED")
	for _, e := range enrollments {
		title := ""
		if e.Course != nil {
			title = core.Truncate(e.Course.Title, 40)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s%%\t%s\n",
			e.CourseID, title, strings.ToLower(e.Status), humanize.FtoaWithDigits(e.ProgressPercent, 2), humanize.Time(e.EnrolledAt))
	}
	return tw.Flush()
}

func (cli *commandLine) progress(id core.ID) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	p, err := cli.courses.Progress(cli.ctx, id)
	if err != nil {
		return err
	}
	cli.printf("Progress: %s\n", progressLine(p))
	if p.IsCompleted {
		cli.printf("Course completed! Get your certificate with: lms certificate -course %s\n", id)
	}
	return nil
}

func (cli *commandLine) completeLesson(id core.ID) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	p, err := cli.courses.CompleteLesson(cli.ctx, id)
	if err != nil {
		return err
	}
	cli.printf("Lesson completed. Progress: %s\n", progressLine(p))
	if p.IsCompleted {
		cli.printf("Course completed! Get your certificate with: lms certificate -course %s\n", p.CourseID)
	}
	return nil
}

func progressLine(p course.Progress) string {
	return fmt.Sprintf("%d/%d lessons (%s%%)", len(p.CompletedLessons), p.TotalLessons, humanize.FtoaWithDigits(p.Percent, 2))
}
