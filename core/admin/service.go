// Package admin implements the authoring editors: courses, chapters, lessons and
// quizzes, plus the user list and dashboard of the admin area.
package admin

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/apiclient"
	"github.com/kohkiet/swp-lms/core/course"
	"github.com/kohkiet/swp-lms/core/quiz"
)

var (
	// errors
	ErrForbidden = errors.New("admin role required")
	ErrNotFound  = errors.New("not found")
	errMissingID = errors.New("id is required")

	statuses = apiclient.Statuses{
		http.StatusForbidden: ErrForbidden,
		http.StatusNotFound:  ErrNotFound,
	}
)

// Roles tells whether the current user may use the admin area.
type Roles interface {
	IsAdmin() bool
}

type Service struct {
	api    *apiclient.Client
	roles  Roles
	logger core.Logger
}

// NewService returns the admin service. With nil roles the role check is left to the backend.
func NewService(api *apiclient.Client, roles Roles, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Service{api: api, roles: roles, logger: logger}
}

func (svc *Service) authorize() error {
	if svc.roles != nil && !svc.roles.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// CreateCourse validates nc before any network call, then uploads it as multipart.
func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (course.Course, error) {
	if err := core.ValidateStruct(nc); err != nil {
		return course.Course{}, err
	}
	if err := svc.authorize(); err != nil {
		return course.Course{}, err
	}

	res := svc.api.Post(ctx, "/api/courses", nc.form(), apiclient.Protected())
	var c course.Course
	if err := res.Into(&c, "creating course", statuses); err != nil {
		return course.Course{}, err
	}
	svc.logger.Info("course created", map[string]interface{}{"courseId": c.ID, "title": c.Title})
	return c, nil
}

func (svc *Service) UpdateCourse(ctx context.Context, id core.ID, uc UpdateCourse) (course.Course, error) {
	if id == "" {
		return course.Course{}, errMissingID
	}
	if err := core.ValidateStruct(uc); err != nil {
		return course.Course{}, err
	}
	if err := svc.authorize(); err != nil {
		return course.Course{}, err
	}

	res := svc.api.Put(ctx, "/api/courses/"+string(id), uc.form(), apiclient.Protected())
	var c course.Course
	if err := res.Into(&c, "updating course", statuses); err != nil {
		return course.Course{}, err
	}
	if c.ID == "" {
		c.ID = id
	}
	return c, nil
}

func (svc *Service) DeleteCourse(ctx context.Context, id core.ID) error {
	return svc.delete(ctx, "/api/courses/", id, "deleting course")
}

func (svc *Service) CreateChapter(ctx context.Context, nc NewChapter) (course.Chapter, error) {
	var ch course.Chapter
	err := svc.save(ctx, http.MethodPost, "/api/chapters", nc, &ch, "creating chapter")
	return ch, err
}

func (svc *Service) UpdateChapter(ctx context.Context, id core.ID, nc NewChapter) (course.Chapter, error) {
	if id == "" {
		return course.Chapter{}, errMissingID
	}
	var ch course.Chapter
	err := svc.save(ctx, http.MethodPut, "/api/chapters/"+string(id), nc, &ch, "updating chapter")
	return ch, err
}

func (svc *Service) DeleteChapter(ctx context.Context, id core.ID) error {
	return svc.delete(ctx, "/api/chapters/", id, "deleting chapter")
}

func (svc *Service) CreateLesson(ctx context.Context, nl NewLesson) (course.Lesson, error) {
	var l course.Lesson
	err := svc.save(ctx, http.MethodPost, "/api/lessons", nl, &l, "creating lesson")
	return l, err
}

func (svc *Service) UpdateLesson(ctx context.Context, id core.ID, nl NewLesson) (course.Lesson, error) {
	if id == "" {
		return course.Lesson{}, errMissingID
	}
	var l course.Lesson
	err := svc.save(ctx, http.MethodPut, "/api/lessons/"+string(id), nl, &l, "updating lesson")
	return l, err
}

func (svc *Service) DeleteLesson(ctx context.Context, id core.ID) error {
	return svc.delete(ctx, "/api/lessons/", id, "deleting lesson")
}

func (svc *Service) CreateQuiz(ctx context.Context, nq NewQuiz) (quiz.Quiz, error) {
	var q quiz.Quiz
	err := svc.save(ctx, http.MethodPost, "/api/quizzes", nq, &q, "creating quiz")
	return q, err
}

func (svc *Service) UpdateQuiz(ctx context.Context, id core.ID, nq NewQuiz) (quiz.Quiz, error) {
	if id == "" {
		return quiz.Quiz{}, errMissingID
	}
	var q quiz.Quiz
	err := svc.save(ctx, http.MethodPut, "/api/quizzes/"+string(id), nq, &q, "updating quiz")
	return q, err
}

func (svc *Service) DeleteQuiz(ctx context.Context, id core.ID) error {
	return svc.delete(ctx, "/api/quizzes/", id, "deleting quiz")
}

func (svc *Service) Users(ctx context.Context, filter UserFilter) ([]User, error) {
	if err := svc.authorize(); err != nil {
		return nil, err
	}
	res := svc.api.Get(ctx, "/api/admin/users", apiclient.Query(filter.values()), apiclient.Protected())
	var users []User
	if err := res.Into(&users, "listing users", statuses); err != nil {
		return nil, err
	}
	return users, nil
}

func (svc *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	if err := svc.authorize(); err != nil {
		return Dashboard{}, err
	}
	res := svc.api.Get(ctx, "/api/admin/dashboard", apiclient.Protected())
	var d Dashboard
	if err := res.Into(&d, "loading dashboard", statuses); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// save validates input and sends it as JSON.
func (svc *Service) save(ctx context.Context, method, path string, input, out interface{}, action string) error {
	if err := core.ValidateStruct(input); err != nil {
		return err
	}
	if err := svc.authorize(); err != nil {
		return err
	}
	res := svc.api.Do(ctx, apiclient.Request{Method: method, Path: path, Body: input, Protected: true})
	return res.Into(out, action, statuses)
}

func (svc *Service) delete(ctx context.Context, prefix string, id core.ID, action string) error {
	if id == "" {
		return errMissingID
	}
	if err := svc.authorize(); err != nil {
		return err
	}
	res := svc.api.Delete(ctx, prefix+string(id), apiclient.Protected())
	if err := res.Into(nil, action, statuses); err != nil {
		return err
	}
	svc.logger.Info(action, map[string]interface{}{"id": id})
	return nil
}
