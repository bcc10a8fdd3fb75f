package course

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/apiclient"
	testutil "github.com/kohkiet/swp-lms/tests"
)

func newService(t *testing.T) (*Service, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t)
	api := backend.Client(backend.Token(t, testutil.StudentEmail))
	return NewService(api, nil), backend
}

func ids(courses []Course) []core.ID {
	res := make([]core.ID, len(courses))
	for i, c := range courses {
		res[i] = c.ID
	}
	return res
}

func TestService_Query(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter QueryFilter
		want   []core.ID
	}{
		{name: "published catalog", want: []core.ID{testutil.CourseBasics, testutil.CourseAlcohol, testutil.CourseParents}},
		{name: "by age group", filter: QueryFilter{AgeGroup: "Adult"}, want: []core.ID{testutil.CourseParents}},
		{name: "by type", filter: QueryFilter{CourseType: "awareness"}, want: []core.ID{testutil.CourseAlcohol}},
		{name: "by search", filter: QueryFilter{Search: "  alcohol "}, want: []core.ID{testutil.CourseAlcohol}},
		{name: "no match", filter: QueryFilter{Search: "cooking"}, want: []core.ID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			if !assert.Equal(t, tt.want, ids(got)) {
				t.Errorf("Query(%+v) = %v, want %v", tt.filter, ids(got), tt.want)
			}
		})
	}

	courses, err := svc.Query(ctx, QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, courses[0].ChapterCount)
	assert.Equal(t, "Drug Prevention Basics", courses[0].Title)
}

func TestService_Query_backendDown(t *testing.T) {
	svc, backend := newService(t)
	backend.Fail(http.MethodGet, "/api/courses", http.StatusBadGateway, "<html><body>Bad Gateway</body></html>")

	courses, err := svc.Query(context.Background(), QueryFilter{})
	assert.Nil(t, courses)
	require.Error(t, err)
	assert.True(t, apiclient.IsStatus(err, http.StatusBadGateway))
}

func TestService_Get(t *testing.T) {
	svc, backend := newService(t)
	ctx := context.Background()

	c, err := svc.Get(ctx, testutil.CourseParents)
	require.NoError(t, err)
	assert.Equal(t, "Healthy Choices for Parents", c.Title)
	assert.Equal(t, "Adult", c.AgeGroup)
	assert.True(t, c.IsPublished)

	_, err = svc.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	hits := backend.Hits()
	_, err = svc.Get(ctx, "")
	assert.Equal(t, errMissingCourseID, err)
	assert.Equal(t, hits, backend.Hits())
}

func TestService_Chapters(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	chapters, err := svc.Chapters(ctx, testutil.CourseBasics)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, core.ID("ch1"), chapters[0].ID)
	assert.Equal(t, core.ID("ch2"), chapters[1].ID)

	lessons := chapters[0].Lessons
	require.Len(t, lessons, 2)
	assert.Equal(t, core.ID(testutil.LessonIntro), lessons[0].ID)
	assert.Equal(t, core.ID(testutil.LessonTypes), lessons[1].ID)
	assert.Equal(t, core.ID(testutil.QuizRisk), chapters[1].Lessons[0].QuizID)

	_, err = svc.Chapters(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Lesson(t *testing.T) {
	svc, backend := newService(t)
	ctx := context.Background()

	l, err := svc.Lesson(ctx, testutil.LessonIntro)
	require.NoError(t, err)
	assert.Equal(t, "Introduction", l.Title)
	assert.Equal(t, "https://videos.lms.test/intro.mp4", l.VideoURL)

	_, err = svc.Lesson(ctx, "nope")
	assert.ErrorIs(t, err, ErrLessonNotFound)

	anon := NewService(backend.Client(""), nil)
	hits := backend.Hits()
	_, err = anon.Lesson(ctx, testutil.LessonIntro)
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, hits, backend.Hits())
}

func TestService_enrollmentLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	enrolled, err := svc.IsEnrolled(ctx, testutil.CourseBasics)
	require.NoError(t, err)
	assert.False(t, enrolled)

	_, err = svc.CompleteLesson(ctx, testutil.LessonIntro)
	require.Error(t, err, "completing a lesson needs an enrollment")

	e, err := svc.Enroll(ctx, testutil.CourseBasics)
	require.NoError(t, err)
	assert.Equal(t, core.ID(testutil.CourseBasics), e.CourseID)
	assert.True(t, e.IsActive())

	_, err = svc.Enroll(ctx, testutil.CourseBasics)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	enrolled, err = svc.IsEnrolled(ctx, testutil.CourseBasics)
	require.NoError(t, err)
	assert.True(t, enrolled)

	p, err := svc.CompleteLesson(ctx, testutil.LessonIntro)
	require.NoError(t, err)
	assert.Equal(t, core.ID(testutil.CourseBasics), p.CourseID)
	assert.Equal(t, 3, p.TotalLessons)
	assert.InDelta(t, 33.33, p.Percent, .01)
	assert.False(t, p.IsCompleted)

	p, err = svc.Progress(ctx, testutil.CourseBasics)
	require.NoError(t, err)
	assert.True(t, p.HasCompleted(testutil.LessonIntro))
	assert.False(t, p.HasCompleted(testutil.LessonRisk))

	for _, id := range []core.ID{testutil.LessonTypes, testutil.LessonRisk} {
		p, err = svc.CompleteLesson(ctx, id)
		require.NoError(t, err)
	}
	assert.True(t, p.IsCompleted)
	assert.Equal(t, float64(100), p.Percent)

	enrollments, err := svc.Enrollments(ctx)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.True(t, strings.EqualFold(StatusCompleted, enrollments[0].Status))
	assert.Equal(t, "Drug Prevention Basics", enrollments[0].Course.Title)

	require.NoError(t, svc.Drop(ctx, testutil.CourseBasics))
	enrolled, err = svc.IsEnrolled(ctx, testutil.CourseBasics)
	require.NoError(t, err)
	assert.False(t, enrolled)

	assert.ErrorIs(t, svc.Drop(ctx, testutil.CourseBasics), ErrNotEnrolled)
	_, err = svc.Progress(ctx, testutil.CourseBasics)
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestService_Enroll_unknownCourse(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Enroll(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	courses := []Course{
		{ID: "c1", Title: "Drug Prevention Basics", Description: "Understand substances and their risks."},
		{ID: "c2", Title: "Saying No to Alcohol", Description: "Refusal skills for social situations."},
		{ID: "c3", Title: "Healthy Choices for Parents", Description: "Talking with your kids about drugs."},
	}

	tests := []struct {
		name  string
		query string
		want  []core.ID
	}{
		{name: "empty query", query: "  ", want: []core.ID{"c1", "c2", "c3"}},
		{name: "title before description", query: "DRUG", want: []core.ID{"c1", "c3"}},
		{name: "description only", query: "refusal", want: []core.ID{"c2"}},
		{name: "typo", query: "alcohl", want: []core.ID{"c2"}},
		{name: "no match", query: "zzz", want: []core.ID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(Search(courses, tt.query)); !assert.Equal(t, tt.want, got) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
