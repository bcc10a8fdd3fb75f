// Command lms is the terminal client of the LMS: catalog, enrollments, timed
// quizzes, screening surveys, certificates and course administration.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"

	"k8s.io/utils/clock"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/apiclient"
	"github.com/kohkiet/swp-lms/core/session"
	"github.com/kohkiet/swp-lms/services/email"
	"github.com/kohkiet/swp-lms/services/logger"
	"github.com/kohkiet/swp-lms/storage/database"
)

var stdLogger *log.Logger

func main() {
	stdLogger = log.New(os.Stderr, "LMS : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)
	if !conf.Debug {
		stdLogger.SetOutput(io.Discard)
	}

	lgr := logsvc.NewRollbarLogger(stdLogger, conf)
	defer lgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// set up the session store
	store, err := database.Open(conf)
	errAndDie(err)
	defer store.Close()

	clk := clock.RealClock{}
	sess := session.New(store, clk)
	if err := sess.Load(ctx); err != nil {
		lgr.Warn("loading session", err)
	}

	api := apiclient.New(apiclient.Options{
		BaseURL: conf.API.BaseURL,
		Timeout: conf.API.Timeout,
		Tokens:  sess,
		Logger:  lgr,
		OnUnauthorized: func() {
			if err := sess.Clear(context.Background()); err != nil {
				lgr.Error("clearing session", err)
			}
		},
	})

	var mailer core.EmailService
	if conf.SendgridApiKey != "" {
		mailer = emailsvc.NewSendgridService(conf, lgr)
	} else {
		mailer = emailsvc.NewConsoleService(conf, os.Stdout, lgr)
	}

	// start CLI
	cli := newCommandLine(deps{
		conf:    conf,
		api:     api,
		session: sess,
		store:   store,
		mailer:  mailer,
		clock:   clk,
		logger:  lgr,
		in:      os.Stdin,
		out:     os.Stdout,
	})
	cli.ctx = ctx
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.SetOutput(os.Stderr)
			stdLogger.SetFlags(0)
			stdLogger.SetPrefix("")
			stdLogger.Printf("\nerror: %s\n", describe(err))
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		stdLogger.Fatal(err)
	}
}
