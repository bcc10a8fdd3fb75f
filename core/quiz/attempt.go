package quiz

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/timer"
)

var (
	ErrUnknownQuestion = errors.New("question is not part of this quiz")
	ErrUnknownAnswer   = errors.New("answer is not a choice of this question")
	ErrUntimed         = errors.New("quiz has no time limit")
)

// Attempt is one run through a quiz, opened by Service.Start.
// It is safe for concurrent use: the countdown may auto-submit while the user answers.
type Attempt struct {
	Quiz      Quiz
	SessionID string // opaque, sent back verbatim on submit
	Questions []Question
	StartedAt time.Time

	mu        sync.Mutex
	answers   map[core.ID]core.ID // question -> answer
	submitted bool
}

func newAttempt(q Quiz, sess session, now time.Time) *Attempt {
	questions := sess.Questions
	if len(questions) == 0 {
		questions = q.Questions
	}
	questions = append([]Question(nil), questions...)
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })

	if sess.TimeLimitMinutes != nil {
		q.TimeLimitMinutes = *sess.TimeLimitMinutes
	}
	return &Attempt{
		Quiz:      q,
		SessionID: sess.SessionID,
		Questions: questions,
		StartedAt: now,
		answers:   make(map[core.ID]core.ID, len(questions)),
	}
}

// Select records the answer for a question, replacing any previous choice.
func (a *Attempt) Select(questionID, answerID core.ID) error {
	q, ok := a.question(questionID)
	if !ok {
		return errors.Wrapf(ErrUnknownQuestion, "question %s", questionID)
	}
	if _, ok := q.Answer(answerID); !ok {
		return errors.Wrapf(ErrUnknownAnswer, "answer %s", answerID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.submitted {
		return ErrAlreadySubmitted
	}
	a.answers[questionID] = answerID
	return nil
}

// Selected returns the chosen answer of a question.
func (a *Attempt) Selected(questionID core.ID) (core.ID, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.answers[questionID]
	return id, ok
}

// Answers returns the selected answers in question order.
func (a *Attempt) Answers() []SubmittedAnswer {
	a.mu.Lock()
	defer a.mu.Unlock()
	res := make([]SubmittedAnswer, 0, len(a.answers))
	for _, q := range a.Questions {
		if ans, ok := a.answers[q.ID]; ok {
			res = append(res, SubmittedAnswer{QuestionID: q.ID, AnswerID: ans})
		}
	}
	return res
}

func (a *Attempt) Unanswered() []Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	var res []Question
	for _, q := range a.Questions {
		if _, ok := a.answers[q.ID]; !ok {
			res = append(res, q)
		}
	}
	return res
}

func (a *Attempt) Submitted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submitted
}

// TimeSpent is the time elapsed since the attempt started.
func (a *Attempt) TimeSpent(now time.Time) time.Duration {
	if d := now.Sub(a.StartedAt); d > 0 {
		return d
	}
	return 0
}

// Countdown returns a countdown over the quiz time limit. opts.Total is ignored.
func (a *Attempt) Countdown(opts timer.Options) (*timer.Countdown, error) {
	if !a.Quiz.Timed() {
		return nil, ErrUntimed
	}
	opts.Total = a.Quiz.TimeLimit()
	return timer.NewCountdown(opts)
}

// Timer returns a stopped ticking timer over the quiz time limit. opts.Total is ignored.
func (a *Attempt) Timer(opts timer.Options, clk clock.WithTicker) (*timer.Timer, error) {
	if !a.Quiz.Timed() {
		return nil, ErrUntimed
	}
	opts.Total = a.Quiz.TimeLimit()
	return timer.New(opts, clk)
}

func (a *Attempt) question(id core.ID) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// markSubmitted flips the attempt to submitted, reporting false if it already was.
func (a *Attempt) markSubmitted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.submitted {
		return false
	}
	a.submitted = true
	return true
}

func (a *Attempt) unmarkSubmitted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submitted = false
}
