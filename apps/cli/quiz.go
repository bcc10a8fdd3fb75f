package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/quiz"
	"github.com/kohkiet/swp-lms/core/timer"
)

func (cli *commandLine) resolveQuiz(id, lessonID core.ID) (core.ID, error) {
	if id != "" {
		return id, nil
	}
	q, err := cli.quizzes.ForLesson(cli.ctx, lessonID)
	if err != nil {
		return "", err
	}
	return q.ID, nil
}

func (cli *commandLine) takeQuiz(id, lessonID core.ID) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	id, err := cli.resolveQuiz(id, lessonID)
	if err != nil {
		return err
	}
	a, err := cli.quizzes.Start(cli.ctx, id)
	if err != nil {
		return err
	}

	cli.printf("%s: %d questions, passing score %s%%\n", a.Quiz.Title, len(a.Questions), humanize.FtoaWithDigits(a.Quiz.PassingScore, 2))
	cli.println("Type the number of your answer, or an empty line to skip the question.")

	timeUp := make(chan struct{})
	if a.Quiz.Timed() {
		var once sync.Once
		tm, err := a.Timer(timer.Options{
			WarningThreshold: cli.conf.Quiz.WarningThreshold,
			DangerThreshold:  cli.conf.Quiz.DangerThreshold,
			OnWarning: func(secs int) {
				cli.printf("\n%s left!\n", timer.State{SecondsRemaining: secs})
			},
			OnTimeUp: func() { once.Do(func() { close(timeUp) }) },
		}, cli.clock)
		if err != nil {
			return err
		}
		cli.printf("You have %d minutes.\n", a.Quiz.TimeLimitMinutes)
		tm.Start()
		defer tm.Stop()
	}

	lines, done := cli.readLines()
	defer close(done)

questions:
	for i, q := range a.Questions {
		cli.printf("\n%d/%d. %s\n", i+1, len(a.Questions), q.Text)
		for j, ans := range q.Answers {
			cli.printf("  %d) %s\n", j+1, ans.Text)
		}
		for {
			cli.print("> ")
			select {
			case <-timeUp:
				cli.println("\nTime is up! Submitting your answers.")
				break questions
			case line, ok := <-lines:
				if !ok {
					break questions
				}
				if line == "" {
					continue questions
				}
				n, err := strconv.Atoi(line)
				if err != nil || n < 1 || n > len(q.Answers) {
					cli.printf("Please enter a number between 1 and %d.\n", len(q.Answers))
					continue
				}
				if err := a.Select(q.ID, q.Answers[n-1].ID); err != nil {
					return err
				}
				continue questions
			}
		}
	}

	if left := len(a.Unanswered()); left > 0 {
		cli.printf("%s left unanswered.\n", plural(left, "question"))
	}
	res, err := cli.quizzes.Submit(cli.ctx, a)
	if err != nil {
		return err
	}
	cli.printResult(res, a.Quiz)
	return nil
}

func (cli *commandLine) printResult(r quiz.Result, q quiz.Quiz) {
	passing := r.PassingScore
	if passing == 0 {
		passing = q.PassingScore
	}
	cli.printf("\nScore: %s%% (%d/%d correct), passing score %s%%\n",
		humanize.FtoaWithDigits(r.Score, 2), r.CorrectAnswers, r.TotalQuestions, humanize.FtoaWithDigits(passing, 2))
	if r.IsPassed {
		cli.println("Passed!")
	} else {
		cli.println("Not passed, you can try again.")
	}
	cli.printf("Time spent: %s\n", plural(r.TimeSpentMinutes, "minute"))
}

func (cli *commandLine) quizHistory(id, lessonID core.ID) error {
	if err := cli.requireLogin(); err != nil {
		return err
	}
	id, err := cli.resolveQuiz(id, lessonID)
	if err != nil {
		return err
	}
	results, err := cli.quizzes.History(cli.ctx, id)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		cli.println("No attempts yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tPASSED\tTIME\tSUBMITTED")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s%%\t%t\t%s\t%s\n",
			i+1, humanize.FtoaWithDigits(r.Score, 2), r.IsPassed, plural(r.TimeSpentMinutes, "minute"), humanize.Time(r.SubmittedAt))
	}
	return tw.Flush()
}

// readLines feeds the trimmed input lines until EOF or until done is closed.
func (cli *commandLine) readLines() (<-chan string, chan<- struct{}) {
	lines := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cli.in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-done:
				return
			}
		}
	}()
	return lines, done
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
