// Package quiz runs server-backed quiz sessions: start, answer, submit.
package quiz

import (
	"context"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/apiclient"
)

var (
	// errors
	ErrNotFound         = errors.New("quiz not found")
	ErrNoSession        = errors.New("quiz session not started")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
	errMissingID        = errors.New("quiz id is required")
)

type Service struct {
	api    *apiclient.Client
	clock  clock.PassiveClock
	logger core.Logger
}

func NewService(api *apiclient.Client, clk clock.PassiveClock, logger core.Logger) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Service{api: api, clock: clk, logger: logger}
}

func (svc *Service) Get(ctx context.Context, id core.ID) (Quiz, error) {
	if id == "" {
		return Quiz{}, errMissingID
	}
	res := svc.api.Get(ctx, "/api/quizzes/"+string(id), apiclient.Protected())
	var q Quiz
	if err := res.Into(&q, "getting quiz", apiclient.NotFound(ErrNotFound)); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// ForLesson returns the quiz attached to a lesson.
func (svc *Service) ForLesson(ctx context.Context, lessonID core.ID) (Quiz, error) {
	if lessonID == "" {
		return Quiz{}, errors.New("lesson id is required")
	}
	res := svc.api.Get(ctx, "/api/lessons/"+string(lessonID)+"/quiz", apiclient.Protected())
	var q Quiz
	if err := res.Into(&q, "getting lesson quiz", apiclient.NotFound(ErrNotFound)); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// Start opens a server session for the quiz. There is no offline fallback:
// without a session id the attempt cannot be submitted.
func (svc *Service) Start(ctx context.Context, quizID core.ID) (*Attempt, error) {
	q, err := svc.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	res := svc.api.Post(ctx, "/api/quizzes/"+string(quizID)+"/start", nil, apiclient.Protected())
	var sess session
	if err := res.Into(&sess, "starting quiz", apiclient.NotFound(ErrNotFound)); err != nil {
		return nil, err
	}
	if sess.SessionID == "" {
		return nil, errors.Wrap(ErrNoSession, "backend returned no session id")
	}

	a := newAttempt(q, sess, svc.clock.Now())
	svc.logger.Info("quiz started", map[string]interface{}{
		"quizId":    quizID,
		"sessionId": a.SessionID,
		"questions": len(a.Questions),
	})
	return a, nil
}

// Submit sends the selected answers. It fails without a network call when the
// attempt has no session or was already submitted.
func (svc *Service) Submit(ctx context.Context, a *Attempt) (Result, error) {
	if a == nil || a.SessionID == "" {
		return Result{}, ErrNoSession
	}
	if !a.markSubmitted() {
		return Result{}, ErrAlreadySubmitted
	}

	spent := core.RoundMinutes(a.TimeSpent(svc.clock.Now()))
	body := submission{
		QuizID:           a.Quiz.ID,
		SessionID:        a.SessionID,
		Answers:          a.Answers(),
		TimeSpentMinutes: spent,
	}
	res := svc.api.Post(ctx, "/api/quizzes/submit", body, apiclient.Protected())
	var r Result
	if err := res.Into(&r, "submitting quiz", apiclient.NotFound(ErrNotFound)); err != nil {
		// let the user retry
		a.unmarkSubmitted()
		return Result{}, err
	}
	if r.QuizID == "" {
		r.QuizID = a.Quiz.ID
	}
	if r.TimeSpentMinutes == 0 {
		r.TimeSpentMinutes = spent
	}
	if r.TotalQuestions == 0 {
		r.TotalQuestions = len(a.Questions)
	}
	svc.logger.Info("quiz submitted", map[string]interface{}{
		"quizId":   a.Quiz.ID,
		"score":    r.Score,
		"isPassed": r.IsPassed,
	})
	return r, nil
}

// History lists the current user's past results for a quiz.
func (svc *Service) History(ctx context.Context, quizID core.ID) ([]Result, error) {
	if quizID == "" {
		return nil, errMissingID
	}
	res := svc.api.Get(ctx, "/api/quizzes/"+string(quizID)+"/history", apiclient.Protected())
	var results []Result
	if err := res.Into(&results, "getting quiz history", apiclient.NotFound(ErrNotFound)); err != nil {
		return nil, err
	}
	return results, nil
}
