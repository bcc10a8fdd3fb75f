package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/term"
	"k8s.io/utils/clock"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/admin"
	"github.com/kohkiet/swp-lms/core/apiclient"
	"github.com/kohkiet/swp-lms/core/certificate"
	"github.com/kohkiet/swp-lms/core/course"
	"github.com/kohkiet/swp-lms/core/quiz"
	"github.com/kohkiet/swp-lms/core/session"
	"github.com/kohkiet/swp-lms/core/survey"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotLoggedIn = errors.New("you are not logged in, run: lms login -email EMAIL")
	errExpired     = errors.New("your session has expired, run: lms login -email EMAIL")
)

type commandLine struct {
	ctx    context.Context
	conf   *core.Config
	in     io.Reader
	out    io.Writer
	clock  clock.WithTicker
	logger core.Logger
	dbPath string // local sqlite store, for migrate

	session *session.Session
	mailer  core.EmailService
	auth    *session.Auth
	courses *course.Service
	admin   *admin.Service
	quizzes *quiz.Service
	surveys *survey.Service
	certs   *certificate.Service
}

type deps struct {
	conf    *core.Config
	api     *apiclient.Client
	session *session.Session
	store   core.Store
	mailer  core.EmailService
	clock   clock.WithTicker
	logger  core.Logger
	in      io.Reader
	out     io.Writer
}

func newCommandLine(d deps) *commandLine {
	if d.clock == nil {
		d.clock = clock.RealClock{}
	}
	if d.logger == nil {
		d.logger = core.NopLogger{}
	}
	return &commandLine{
		ctx:     context.Background(),
		conf:    d.conf,
		in:      d.in,
		out:     &syncWriter{w: d.out},
		clock:   d.clock,
		logger:  d.logger,
		dbPath:  d.conf.Storage.Path,
		session: d.session,
		mailer:  d.mailer,
		auth:    session.NewAuth(d.api, d.session, d.logger),
		courses: course.NewService(d.api, d.logger),
		admin:   admin.NewService(d.api, d.session, d.logger),
		quizzes: quiz.NewService(d.api, d.clock, d.logger),
		surveys: survey.NewService(d.api, d.store, d.clock, d.logger),
		certs:   certificate.NewService(d.api, d.mailer, d.conf, d.logger),
	}
}

func (cli *commandLine) printUsage() {
	cli.println("Usage:")
	cli.println("  login -email EMAIL                  - log in (the password is prompted next)")
	cli.println("  logout                              - log out")
	cli.println("  whoami                              - show the logged in user")
	cli.println("  courses [-search Q] [-type T] [-age A] - browse the catalog")
	cli.println("  course -id ID                       - show a course with its chapters and lessons")
	cli.println("  enroll -id ID | drop -id ID         - join or leave a course")
	cli.println("  enrollments                         - list your courses")
	cli.println("  progress -id ID                     - show your progress in a course")
	cli.println("  complete -lesson ID                 - mark a lesson as completed")
	cli.println("  quiz -id ID | -lesson ID [-history] - take a quiz")
	cli.println("  surveys | survey -id ID [-restart] | survey -results - take a screening survey")
	cli.println("  certificate -course ID [-format html|text] [-out FILE] [-email] - get your certificate")
	cli.println("  certificates                        - list your certificates")
	cli.println("  admin SUBCOMMAND                    - createcourse, updatecourse, deletecourse, users, dashboard")
	cli.println("  migrate COMMAND                     - manage the local session store schema (up, down, status, version...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "login":
		fs := cli.flagSet("login")
		email := fs.String("email", "", "Your email. The password will be prompted next.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *email == "" {
			fs.Usage()
			return errHelp
		}
		cli.print("Enter password:")
		pwd, err := readPasswordFunc(stdinFd())
		cli.println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			fs.Usage()
			return errHelp
		}
		return cli.login(*email, string(pwd))
	case "logout":
		return cli.logout()
	case "whoami":
		return cli.whoami()
	case "courses":
		fs := cli.flagSet("courses")
		search := fs.String("search", "", "Keywords matched against titles and descriptions.")
		courseType := fs.String("type", "", "Course type, eg: Prevention.")
		ageGroup := fs.String("age", "", "Age group, eg: Teen.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listCourses(*search, *courseType, *ageGroup)
	case "course", "enroll", "drop", "progress":
		fs := cli.flagSet(args[1])
		id := fs.String("id", "", "The course id.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		switch args[1] {
		case "course":
			return cli.showCourse(core.ID(*id))
		case "enroll":
			return cli.enroll(core.ID(*id))
		case "drop":
			return cli.drop(core.ID(*id))
		default:
			return cli.progress(core.ID(*id))
		}
	case "enrollments":
		return cli.enrollments()
	case "complete":
		fs := cli.flagSet("complete")
		lesson := fs.String("lesson", "", "The lesson id.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *lesson == "" {
			fs.Usage()
			return errHelp
		}
		return cli.completeLesson(core.ID(*lesson))
	case "quiz":
		fs := cli.flagSet("quiz")
		id := fs.String("id", "", "The quiz id.")
		lesson := fs.String("lesson", "", "Take the quiz of this lesson instead.")
		history := fs.Bool("history", false, "List your past attempts instead of taking the quiz.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *id == "" && *lesson == "" {
			fs.Usage()
			return errHelp
		}
		if *history {
			return cli.quizHistory(core.ID(*id), core.ID(*lesson))
		}
		return cli.takeQuiz(core.ID(*id), core.ID(*lesson))
	case "surveys":
		return cli.listSurveys()
	case "survey":
		fs := cli.flagSet("survey")
		id := fs.String("id", "", "The survey id.")
		restart := fs.Bool("restart", false, "Discard saved answers and start over.")
		results := fs.Bool("results", false, "List your past results instead.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *results {
			return cli.surveyResults()
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		return cli.takeSurvey(core.ID(*id), *restart)
	case "certificate":
		fs := cli.flagSet("certificate")
		courseID := fs.String("course", "", "The completed course id.")
		format := fs.String("format", "html", "Output format: html or text.")
		out := fs.String("out", "", `Output file, "-" for stdout. Defaults to the certificate file name.`)
		email := fs.Bool("email", false, "Also email the certificate to you.")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *courseID == "" {
			fs.Usage()
			return errHelp
		}
		f, err := certificate.ParseFormat(*format)
		if err != nil {
			return err
		}
		return cli.certificate(core.ID(*courseID), f, *out, *email)
	case "certificates":
		return cli.listCertificates()
	case "admin":
		return cli.runAdmin(args[2:])
	case "migrate":
		if len(args) < 3 {
			cli.println("Usage: migrate up|up-by-one|up-to VERSION|down|down-to VERSION|redo|reset|status|version")
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) requireLogin() error {
	if err := cli.dropExpired(); err != nil {
		return err
	}
	if !cli.session.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

// dropExpired forgets a stored session whose token has run out.
func (cli *commandLine) dropExpired() error {
	cleared, err := cli.session.ClearExpired(cli.ctx)
	if err != nil {
		return err
	}
	if cleared {
		cli.logger.Info("expired session cleared")
		return errExpired
	}
	return nil
}

func (cli *commandLine) print(a ...interface{}) {
	_, _ = fmt.Fprint(cli.out, a...)
}

func (cli *commandLine) println(a ...interface{}) {
	_, _ = fmt.Fprintln(cli.out, a...)
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, a...)
}

// describe renders err for the terminal, listing field errors one per line.
func describe(err error) string {
	vErr, ok := core.AsValidationError(err)
	if !ok || len(vErr.Fields) == 0 {
		return err.Error()
	}
	flds := vErr.FieldMap()
	names := make([]string, 0, len(flds))
	for name := range flds {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("invalid input:")
	for _, name := range names {
		sb.WriteString("\n  " + name + ": " + flds[name])
	}
	return sb.String()
}

// syncWriter serializes writes coming from the timer goroutine and the command.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (sw *syncWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}
