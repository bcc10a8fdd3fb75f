package admin

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

type fixedRole bool

func (r fixedRole) IsAdmin() bool { return bool(r) }

func newService(t *testing.T, email string, roles Roles) (*Service, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(t)
	return NewService(backend.Client(backend.Token(t, email)), roles, nil), backend
}

func validCourse() NewCourse {
	return NewCourse{
		Title:       "  Staying Safe Online ",
		Description: "Spotting risky offers.",
		CourseType:  "Awareness",
		AgeGroup:    "Teen",
		IsPublished: true,
	}
}

func validQuiz() NewQuiz {
	return NewQuiz{
		LessonID:         testutil.LessonIntro,
		Title:            "Intro check",
		TimeLimitMinutes: 10,
		PassingScore:     60,
		Questions: []NewQuestion{
			{Text: "Ready?", Answers: []NewAnswer{{Text: "Yes", IsCorrect: true}, {Text: "No"}}},
		},
	}
}

func TestService_CreateCourse(t *testing.T) {
	svc, backend := newService(t, testutil.AdminEmail, fixedRole(true))

	nc := validCourse()
	nc.Image = &Upload{Filename: "cover.png", Content: strings.NewReader("png-bytes")}
	c, err := svc.CreateCourse(context.Background(), nc)
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Staying Safe Online", c.Title)
	assert.Equal(t, "/uploads/cover.png", c.ImageURL)
	assert.True(t, c.IsPublished)

	up := backend.LastUpload()
	require.NotNil(t, up)
	assert.True(t, strings.HasPrefix(up.ContentType, "multipart/form-data; boundary="), up.ContentType)
	assert.Equal(t, map[string]string{
		"Title":       "Staying Safe Online",
		"Description": "Spotting risky offers.",
		"CourseType":  "Awareness",
		"AgeGroup":    "Teen",
		"IsPublished": "true",
	}, up.Fields)
	assert.Equal(t, "cover.png", up.Filename)
	assert.Equal(t, "image/png", up.FileType)
	assert.Equal(t, "png-bytes", up.FileContent)
}

func TestService_CreateCourse_invalid(t *testing.T) {
	svc, backend := newService(t, testutil.AdminEmail, fixedRole(true))

	tests := []struct {
		name      string
		mutate    func(*NewCourse)
		wantField string
	}{
		{name: "title too long", mutate: func(nc *NewCourse) { nc.Title = strings.Repeat("a", 201) }, wantField: "title"},
		{name: "blank title", mutate: func(nc *NewCourse) { nc.Title = "   " }, wantField: "title"},
		{name: "missing type", mutate: func(nc *NewCourse) { nc.CourseType = "" }, wantField: "courseType"},
		{name: "description too long", mutate: func(nc *NewCourse) { nc.Description = strings.Repeat("d", 2001) }, wantField: "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := validCourse()
			tt.mutate(&nc)
			_, err := svc.CreateCourse(context.Background(), nc)
			vErr, ok := core.AsValidationError(err)
			require.True(t, ok, "CreateCourse() error = %v, want *ValidationError", err)
			assert.Contains(t, vErr.FieldMap(), tt.wantField)
		})
	}
	assert.Equal(t, 0, backend.Hits(), "invalid input must not reach the backend")
}

func TestService_forbidden(t *testing.T) {
	t.Run("known student", func(t *testing.T) {
		svc, backend := newService(t, testutil.StudentEmail, fixedRole(false))
		_, err := svc.CreateCourse(context.Background(), validCourse())
		assert.Equal(t, ErrForbidden, err)
		assert.Equal(t, ErrForbidden, svc.DeleteCourse(context.Background(), testutil.CourseBasics))
		assert.Equal(t, 0, backend.Hits())
	})

	t.Run("backend refuses", func(t *testing.T) {
		svc, backend := newService(t, testutil.StudentEmail, nil)
		_, err := svc.Users(context.Background(), UserFilter{})
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, 1, backend.Hits())
	})
}

func TestService_UpdateCourse(t *testing.T) {
	svc, backend := newService(t, testutil.AdminEmail, fixedRole(true))
	ctx := context.Background()

	uc := UpdateCourse{Title: "Peer Pressure", CourseType: "Workshop", AgeGroup: "Teen", IsPublished: true}
	c, err := svc.UpdateCourse(ctx, testutil.CourseDraft, uc)
	require.NoError(t, err)
	assert.Equal(t, core.ID(testutil.CourseDraft), c.ID)
	assert.Equal(t, "Peer Pressure", c.Title)
	assert.True(t, c.IsPublished)
	assert.Empty(t, backend.LastUpload().Filename)

	_, err = svc.UpdateCourse(ctx, "nope", uc)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateCourse(ctx, "", uc)
	assert.Equal(t, errMissingID, err)
}

func TestService_DeleteCourse(t *testing.T) {
	svc, _ := newService(t, testutil.AdminEmail, fixedRole(true))
	ctx := context.Background()

	require.NoError(t, svc.DeleteCourse(ctx, testutil.CourseDraft))
	assert.ErrorIs(t, svc.DeleteCourse(ctx, testutil.CourseDraft), ErrNotFound)
	assert.Equal(t, errMissingID, svc.DeleteCourse(ctx, ""))
}

func TestService_content(t *testing.T) {
	svc, _ := newService(t, testutil.AdminEmail, fixedRole(true))
	ctx := context.Background()

	ch, err := svc.CreateChapter(ctx, NewChapter{CourseID: testutil.CourseParents, Title: "Starting the talk", Order: 1})
	require.NoError(t, err)
	require.NotEmpty(t, ch.ID)
	assert.Equal(t, core.ID(testutil.CourseParents), ch.CourseID)

	ch, err = svc.UpdateChapter(ctx, ch.ID, NewChapter{CourseID: testutil.CourseParents, Title: "Opening up", Order: 2})
	require.NoError(t, err)
	assert.Equal(t, "Opening up", ch.Title)
	assert.Equal(t, 2, ch.Order)

	l, err := svc.CreateLesson(ctx, NewLesson{ChapterID: ch.ID, Title: "Listening", DurationMinutes: 8})
	require.NoError(t, err)
	require.NotEmpty(t, l.ID)

	l, err = svc.UpdateLesson(ctx, l.ID, NewLesson{ChapterID: ch.ID, Title: "Active listening", DurationMinutes: 9})
	require.NoError(t, err)
	assert.Equal(t, 9, l.DurationMinutes)

	nq := validQuiz()
	nq.LessonID = l.ID
	q, err := svc.CreateQuiz(ctx, nq)
	require.NoError(t, err)
	require.NotEmpty(t, q.ID)
	require.Len(t, q.Questions, 1)
	assert.Len(t, q.Questions[0].Answers, 2)

	nq.PassingScore = 80
	q, err = svc.UpdateQuiz(ctx, q.ID, nq)
	require.NoError(t, err)
	assert.Equal(t, float64(80), q.PassingScore)

	require.NoError(t, svc.DeleteQuiz(ctx, q.ID))
	require.NoError(t, svc.DeleteLesson(ctx, l.ID))
	require.NoError(t, svc.DeleteChapter(ctx, ch.ID))
	assert.ErrorIs(t, svc.DeleteChapter(ctx, ch.ID), ErrNotFound)

	_, err = svc.CreateChapter(ctx, NewChapter{CourseID: "nope", Title: "Lost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_validation(t *testing.T) {
	svc, backend := newService(t, testutil.AdminEmail, fixedRole(true))
	ctx := context.Background()

	noCorrect := validQuiz()
	noCorrect.Questions[0].Answers[0].IsCorrect = false
	oneAnswer := validQuiz()
	oneAnswer.Questions[0].Answers = oneAnswer.Questions[0].Answers[:1]
	slowQuiz := validQuiz()
	slowQuiz.TimeLimitMinutes = 301

	tests := []struct {
		name      string
		save      func() error
		wantField string
		wantMsg   string
	}{
		{
			name: "no correct answer",
			save: func() error {
				_, err := svc.CreateQuiz(ctx, noCorrect)
				return err
			},
			wantField: "questions[0].answers",
			wantMsg:   "at least one answer must be correct",
		},
		{
			name: "single answer",
			save: func() error {
				_, err := svc.CreateQuiz(ctx, oneAnswer)
				return err
			},
			wantField: "questions[0].answers",
		},
		{
			name: "time limit",
			save: func() error {
				_, err := svc.CreateQuiz(ctx, slowQuiz)
				return err
			},
			wantField: "timeLimitMinutes",
		},
		{
			name: "video url",
			save: func() error {
				_, err := svc.CreateLesson(ctx, NewLesson{ChapterID: "ch1", Title: "Clip", VideoURL: "not a url"})
				return err
			},
			wantField: "videoUrl",
		},
		{
			name: "chapter without course",
			save: func() error {
				_, err := svc.CreateChapter(ctx, NewChapter{Title: "Orphan"})
				return err
			},
			wantField: "courseId",
			wantMsg:   "this field is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vErr, ok := core.AsValidationError(tt.save())
			require.True(t, ok)
			fields := vErr.FieldMap()
			require.Contains(t, fields, tt.wantField)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, fields[tt.wantField])
			}
		})
	}
	assert.Equal(t, 0, backend.Hits())
}

func TestService_Users(t *testing.T) {
	svc, _ := newService(t, testutil.AdminEmail, fixedRole(true))
	ctx := context.Background()

	tests := []struct {
		name   string
		filter UserFilter
		want   []string
	}{
		{name: "all", want: []string{testutil.StudentEmail, testutil.AdminEmail, "parent@lms.test"}},
		{name: "by role", filter: UserFilter{Role: "Admin"}, want: []string{testutil.AdminEmail}},
		{name: "by search", filter: UserFilter{Search: "pat"}, want: []string{"parent@lms.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.Users(ctx, tt.filter)
			require.NoError(t, err)
			got := make([]string, len(users))
			for i, u := range users {
				got[i] = u.Email
			}
			if !assert.Equal(t, tt.want, got) {
				t.Errorf("Users(%+v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestService_Dashboard(t *testing.T) {
	svc, _ := newService(t, testutil.AdminEmail, fixedRole(true))

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalUsers)
	assert.Equal(t, 4, d.TotalCourses)
	assert.Equal(t, 3, d.PublishedCourses)
	assert.Equal(t, 0, d.TotalEnrollments)
}

func TestService_unauthenticated(t *testing.T) {
	backend := testutil.NewBackend(t)
	svc := NewService(backend.Client(""), nil, nil)

	_, err := svc.Dashboard(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 0, backend.Hits())
	assert.True(t, apiclient.IsStatus(err, http.StatusUnauthorized))
}
