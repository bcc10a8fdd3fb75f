// Package survey serves the assessment surveys and keeps their in-progress
// answers in the client store so a survey can be resumed.
package survey

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/apiclient"
)

var (
	// errors
	ErrNotFound   = errors.New("survey not found")
	ErrNoProgress = errors.New("no survey in progress")
	errMissingID  = errors.New("survey id is required")
)

type Service struct {
	api    *apiclient.Client
	store  core.Store
	clock  clock.PassiveClock
	logger core.Logger
}

func NewService(api *apiclient.Client, store core.Store, clk clock.PassiveClock, logger core.Logger) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Service{api: api, store: store, clock: clk, logger: logger}
}

func (svc *Service) Query(ctx context.Context) ([]Survey, error) {
	res := svc.api.Get(ctx, "/api/surveys")
	var surveys []Survey
	if err := res.Into(&surveys, "querying surveys", apiclient.NotFound(ErrNotFound)); err != nil {
		return nil, err
	}
	return surveys, nil
}

// Get returns the survey with its questions in display order.
func (svc *Service) Get(ctx context.Context, id core.ID) (Survey, error) {
	if id == "" {
		return Survey{}, errMissingID
	}
	res := svc.api.Get(ctx, "/api/surveys/"+string(id))
	var s Survey
	if err := res.Into(&s, "getting survey", apiclient.NotFound(ErrNotFound)); err != nil {
		return Survey{}, err
	}
	sort.SliceStable(s.Questions, func(i, j int) bool { return s.Questions[i].Order < s.Questions[j].Order })
	return s, nil
}

// Submit validates p against s and sends it. The stored progress is removed
// only once the backend accepted the submission.
func (svc *Service) Submit(ctx context.Context, s Survey, p Progress) (Outcome, error) {
	if err := p.Validate(s); err != nil {
		return Outcome{}, err
	}

	res := svc.api.Post(ctx, "/api/surveys/"+string(s.ID)+"/submit", p.submission(s), apiclient.Protected())
	var out Outcome
	if err := res.Into(&out, "submitting survey", apiclient.NotFound(ErrNotFound)); err != nil {
		return Outcome{}, err
	}
	if out.SurveyID == "" {
		out.SurveyID = s.ID
	}
	if out.SurveyTitle == "" {
		out.SurveyTitle = s.Title
	}

	if err := svc.ClearProgress(ctx); err != nil {
		svc.logger.Warn("clearing survey progress", err)
	}
	svc.logger.Info("survey submitted", map[string]interface{}{"surveyId": s.ID, "riskLevel": out.RiskLevel})
	return out, nil
}

// Results lists the current user's past survey outcomes, newest first.
func (svc *Service) Results(ctx context.Context) ([]Outcome, error) {
	res := svc.api.Get(ctx, "/api/surveys/results/my", apiclient.Protected())
	var outcomes []Outcome
	if err := res.Into(&outcomes, "listing survey results", apiclient.NotFound(ErrNotFound)); err != nil {
		return nil, err
	}
	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].SubmittedAt.After(outcomes[j].SubmittedAt) })
	return outcomes, nil
}

// SaveProgress stores the snapshot, replacing any previous one.
func (svc *Service) SaveProgress(ctx context.Context, p Progress) error {
	p.UpdatedAt = svc.clock.Now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding survey progress")
	}
	return errors.Wrap(svc.store.Set(ctx, core.KeySurveyProgress, data), "saving survey progress")
}

// LoadProgress returns the stored snapshot, or ErrNoProgress.
// An unreadable snapshot is discarded and reported as ErrNoProgress.
func (svc *Service) LoadProgress(ctx context.Context) (Progress, error) {
	data, err := svc.store.Get(ctx, core.KeySurveyProgress)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return Progress{}, ErrNoProgress
		}
		return Progress{}, errors.Wrap(err, "loading survey progress")
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil || p.SurveyID == "" {
		svc.logger.Warn("discarding unreadable survey progress", map[string]interface{}{"size": len(data)})
		_ = svc.ClearProgress(ctx)
		return Progress{}, ErrNoProgress
	}
	if p.Answers == nil {
		p.Answers = make(map[core.ID]core.ID)
	}
	return p, nil
}

func (svc *Service) ClearProgress(ctx context.Context) error {
	return errors.Wrap(svc.store.Delete(ctx, core.KeySurveyProgress), "clearing survey progress")
}
