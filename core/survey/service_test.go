package survey

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/kohkiet/swp-lms/core"
	inmemdb "github.com/kohkiet/swp-lms/storage/database/inmem"
	testutil "github.com/kohkiet/swp-lms/tests"
)

var epoch = time.Date(2024, 2, 20, 8, 30, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	backend *testutil.Backend
	store   *inmemdb.Store
	clock   *testingclock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		backend: testutil.NewBackend(t),
		store:   inmemdb.Open(),
		clock:   testingclock.NewFakeClock(epoch),
	}
	api := f.backend.Client(f.backend.Token(t, testutil.StudentEmail))
	f.svc = NewService(api, f.store, f.clock, nil)
	return f
}

func TestService_Query(t *testing.T) {
	f := newFixture(t)

	surveys, err := f.svc.Query(context.Background())
	require.NoError(t, err)
	require.Len(t, surveys, 2)
	assert.Equal(t, "ASSIST", surveys[0].Type)
	assert.Empty(t, surveys[0].Questions)
}

func TestService_Get(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.Get(ctx, testutil.SurveyAssist)
	require.NoError(t, err)
	require.Len(t, s.Questions, 3)
	for i, want := range []core.ID{"sq1", "sq2", "sq3"} {
		assert.Equal(t, want, s.Questions[i].ID)
	}
	opt, ok := s.Questions[0].Option("sq1-3")
	assert.True(t, ok)
	assert.Equal(t, 4, opt.Score)

	_, err = f.svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProgress_Validate(t *testing.T) {
	s := Survey{ID: "s", Questions: []SurveyQuestion{
		{ID: "a", Options: []Option{{ID: "a0"}, {ID: "a1", Score: 2}}},
		{ID: "b", Options: []Option{{ID: "b0"}, {ID: "b1", Score: 3}}},
	}}

	tests := []struct {
		name    string
		answers map[core.ID]core.ID
		other   bool
		want    map[string]string
		score   int
	}{
		{name: "complete", answers: map[core.ID]core.ID{"a": "a1", "b": "b1"}, score: 5},
		{
			name:    "missing answer",
			answers: map[core.ID]core.ID{"a": "a1"},
			want:    map[string]string{"questions[1]": "this question is not answered"},
			score:   2,
		},
		{
			name:    "foreign option",
			answers: map[core.ID]core.ID{"a": "b1", "b": "b0"},
			want:    map[string]string{"questions[0]": "invalid option"},
		},
		{
			name:    "another survey",
			answers: map[core.ID]core.ID{"a": "a0", "b": "b0"},
			other:   true,
			want:    map[string]string{"surveyId": "progress belongs to another survey"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgress(s.ID)
			if tt.other {
				p.SurveyID = "other"
			}
			for q, o := range tt.answers {
				p.Answer(q, o)
			}
			err := p.Validate(s)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				vErr, ok := core.AsValidationError(err)
				require.True(t, ok, "Validate() error = %v, want *ValidationError", err)
				assert.Equal(t, tt.want, vErr.FieldMap())
			}
			if got := p.Score(s); got != tt.score {
				t.Errorf("Score() = %d, want %d", got, tt.score)
			}
		})
	}
}

func TestService_resumeAndSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.svc.Get(ctx, testutil.SurveyAssist)
	require.NoError(t, err)

	_, err = f.svc.LoadProgress(ctx)
	assert.Equal(t, ErrNoProgress, err)

	p := NewProgress(s.ID)
	p.Answer("sq1", "sq1-1")
	p.Current = 1
	require.NoError(t, f.svc.SaveProgress(ctx, p))

	f.clock.Step(time.Hour)
	p, err = f.svc.LoadProgress(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.ID(testutil.SurveyAssist), p.SurveyID)
	assert.Equal(t, 1, p.Current)
	assert.Equal(t, 1, p.Answered(s))
	assert.True(t, p.UpdatedAt.Equal(epoch), "UpdatedAt = %v, want %v", p.UpdatedAt, epoch)

	hits := f.backend.Hits()
	_, err = f.svc.Submit(ctx, s, p)
	vErr, ok := core.AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, vErr.Fields, 2)
	assert.Equal(t, hits, f.backend.Hits(), "incomplete surveys are not sent")

	p.Answer("sq2", "sq2-2")
	p.Answer("sq3", "sq3-0")
	require.NoError(t, f.svc.SaveProgress(ctx, p))
	assert.Equal(t, 5, p.Score(s))

	path := "/api/surveys/" + testutil.SurveyAssist + "/submit"
	f.backend.Fail(http.MethodPost, path, http.StatusInternalServerError, "")
	_, err = f.svc.Submit(ctx, s, p)
	require.Error(t, err)
	_, err = f.svc.LoadProgress(ctx)
	require.NoError(t, err, "progress is kept when the submission fails")

	f.backend.Restore(http.MethodPost, path)
	out, err := f.svc.Submit(ctx, s, p)
	require.NoError(t, err)
	assert.Equal(t, 5, out.TotalScore)
	assert.Equal(t, "Moderate", out.RiskLevel)
	assert.Equal(t, "ASSIST Screening", out.SurveyTitle)
	assert.NotEmpty(t, out.Recommendation)

	_, err = f.svc.LoadProgress(ctx)
	assert.Equal(t, ErrNoProgress, err)
}

func TestService_LoadProgress_corrupt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{answers"},
		{name: "no survey", data: `{"answers": {"sq1": "sq1-0"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.store.Set(ctx, core.KeySurveyProgress, []byte(tt.data)))
			_, err := f.svc.LoadProgress(ctx)
			assert.Equal(t, ErrNoProgress, err)
			_, err = f.store.Get(ctx, core.KeySurveyProgress)
			assert.ErrorIs(t, err, core.ErrKeyNotFound)
		})
	}
}

func TestService_Results(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assist, err := f.svc.Get(ctx, testutil.SurveyAssist)
	require.NoError(t, err)
	crafft, err := f.svc.Get(ctx, testutil.SurveyCrafft)
	require.NoError(t, err)

	p := NewProgress(assist.ID)
	for _, q := range assist.Questions {
		p.Answer(q.ID, q.Options[len(q.Options)-1].ID)
	}
	out, err := f.svc.Submit(ctx, assist, p)
	require.NoError(t, err)
	assert.Equal(t, 12, out.TotalScore)
	assert.Equal(t, "High", out.RiskLevel)

	p = NewProgress(crafft.ID)
	p.Answer("cq1", "cq1-yes")
	out, err = f.svc.Submit(ctx, crafft, p)
	require.NoError(t, err)
	assert.Equal(t, "Low", out.RiskLevel)

	results, err := f.svc.Results(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, core.ID(testutil.SurveyCrafft), results[0].SurveyID)
	assert.Equal(t, core.ID(testutil.SurveyAssist), results[1].SurveyID)
}
