package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/admin"
)

func (cli *commandLine) printAdminUsage() {
	cli.println("Usage: admin SUBCOMMAND")
	cli.println("  createcourse -title T -type T -age A [-description D] [-publish] [-image FILE]")
	cli.println("  updatecourse -id ID -title T -type T -age A [-description D] [-publish] [-image FILE]")
	cli.println("  createchapter -course ID -title T [-order N]")
	cli.println("  createlesson -chapter ID -title T [-content C] [-video URL] [-duration MIN] [-order N]")
	cli.println("  createquiz -file QUIZ.json")
	cli.println("  deletecourse|deletechapter|deletelesson|deletequiz -id ID")
	cli.println("  users [-search Q] [-role R]")
	cli.println("  dashboard")
}

func (cli *commandLine) runAdmin(args []string) error {
	if len(args) < 1 {
		cli.printAdminUsage()
		return errHelp
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}

	switch args[0] {
	case "createcourse", "updatecourse":
		fs := cli.flagSet(args[0])
		id := fs.String("id", "", "The course id (update only).")
		title := fs.String("title", "", "Course title.")
		desc := fs.String("description", "", "Course description.")
		courseType := fs.String("type", "", "Course type, eg: Prevention.")
		ageGroup := fs.String("age", "", "Age group, eg: Teen.")
		publish := fs.Bool("publish", false, "Publish the course.")
		image := fs.String("image", "", "Path to the cover image.")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if args[0] == "updatecourse" && *id == "" {
			fs.Usage()
			return errHelp
		}

		var upload *admin.Upload
		if *image != "" {
			f, err := os.Open(*image)
			if err != nil {
				return errors.Wrap(err, "opening image")
			}
			defer f.Close()
			upload = &admin.Upload{Filename: filepath.Base(*image), Content: f}
		}

		if args[0] == "createcourse" {
			c, err := cli.admin.CreateCourse(cli.ctx, admin.NewCourse{
				Title: *title, Description: *desc, CourseType: *courseType, AgeGroup: *ageGroup, IsPublished: *publish, Image: upload,
			})
			if err != nil {
				return err
			}
			cli.printf("Course %s created.\n", c.ID)
			return nil
		}
		c, err := cli.admin.UpdateCourse(cli.ctx, core.ID(*id), admin.UpdateCourse{
			Title: *title, Description: *desc, CourseType: *courseType, AgeGroup: *ageGroup, IsPublished: *publish, Image: upload,
		})
		if err != nil {
			return err
		}
		cli.printf("Course %s updated.\n", c.ID)
		return nil
	case "createchapter":
		fs := cli.flagSet(args[0])
		courseID := fs.String("course", "", "The course id.")
		title := fs.String("title", "", "Chapter title.")
		desc := fs.String("description", "", "Chapter description.")
		order := fs.Int("order", 0, "Position in the course.")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		ch, err := cli.admin.CreateChapter(cli.ctx, admin.NewChapter{CourseID: core.ID(*courseID), Title: *title, Description: *desc, Order: *order})
		if err != nil {
			return err
		}
		cli.printf("Chapter %s created.\n", ch.ID)
		return nil
	case "createlesson":
		fs := cli.flagSet(args[0])
		chapterID := fs.String("chapter", "", "The chapter id.")
		title := fs.String("title", "", "Lesson title.")
		content := fs.String("content", "", "Lesson content.")
		video := fs.String("video", "", "Video URL.")
		duration := fs.Int("duration", 0, "Duration in minutes.")
		order := fs.Int("order", 0, "Position in the chapter.")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		l, err := cli.admin.CreateLesson(cli.ctx, admin.NewLesson{
			ChapterID: core.ID(*chapterID), Title: *title, Content: *content, VideoURL: *video, DurationMinutes: *duration, Order: *order,
		})
		if err != nil {
			return err
		}
		cli.printf("Lesson %s created.\n", l.ID)
		return nil
	case "createquiz":
		fs := cli.flagSet(args[0])
		file := fs.String("file", "", "JSON file describing the quiz.")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *file == "" {
			fs.Usage()
			return errHelp
		}
		data, err := os.ReadFile(*file)
		if err != nil {
			return errors.Wrap(err, "reading quiz file")
		}
		var nq admin.NewQuiz
		if err := json.Unmarshal(data, &nq); err != nil {
			return errors.Wrap(err, "decoding quiz file")
		}
		q, err := cli.admin.CreateQuiz(cli.ctx, nq)
		if err != nil {
			return err
		}
		cli.printf("Quiz %s created with %s.\n", q.ID, plural(len(q.Questions), "question"))
		return nil
	case "deletecourse", "deletechapter", "deletelesson", "deletequiz":
		fs := cli.flagSet(args[0])
		id := fs.String("id", "", "The id of the item to delete.")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		return cli.adminDelete(args[0], core.ID(*id))
	case "users":
		fs := cli.flagSet(args[0])
		search := fs.String("search", "", "Keywords matched against emails and names.")
		role := fs.String("role", "", "Only list users with this role.")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return cli.adminUsers(*search, *role)
	case "dashboard":
		return cli.adminDashboard()
	default:
		cli.printAdminUsage()
		return errHelp
	}
}

func (cli *commandLine) adminDelete(cmd string, id core.ID) error {
	var (
		kind string
		err  error
	)
	switch cmd {
	case "deletecourse":
		kind, err = "Course", cli.admin.DeleteCourse(cli.ctx, id)
	case "deletechapter":
		kind, err = "Chapter", cli.admin.DeleteChapter(cli.ctx, id)
	case "deletelesson":
		kind, err = "Lesson", cli.admin.DeleteLesson(cli.ctx, id)
	default:
		kind, err = "Quiz", cli.admin.DeleteQuiz(cli.ctx, id)
	}
	if err != nil {
		return err
	}
	cli.printf("%s %s deleted.\n", kind, id)
	return nil
}

func (cli *commandLine) adminUsers(search, role string) error {
	users, err := cli.admin.Users(cli.ctx, admin.UserFilter{Search: search, Role: role})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		cli.println("No users found.")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Email, u.FullName, u.Role, u.IsActive)
	}
	return tw.Flush()
}

func (cli *commandLine) adminDashboard() error {
	d, err := cli.admin.Dashboard(cli.ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	rows := []struct {
		label string
		n     int
	}{
		{"Users", d.TotalUsers},
		{"Courses", d.TotalCourses},
		{"Published courses", d.PublishedCourses},
		{"Enrollments", d.TotalEnrollments},
		{"Active enrollments", d.ActiveEnrollments},
		{"Completed courses", d.CompletedCourses},
		{"Surveys submitted", d.SurveysSubmitted},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.label, humanize.Comma(int64(r.n)))
	}
	return tw.Flush()
}

