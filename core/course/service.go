// Package course reads the catalog and manages the learner's enrollments and progress.
package course

import (
	"context"
	"net/http"
	"sort"

	"github.com/pkg/errors"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/apiclient"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrLessonNotFound  = errors.New("lesson not found")
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	ErrNotEnrolled     = errors.New("not enrolled in this course")
	errMissingCourseID = errors.New("course id is required")
	errMissingLessonID = errors.New("lesson id is required")
)

type Service struct {
	api    *apiclient.Client
	logger core.Logger
}

func NewService(api *apiclient.Client, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Service{api: api, logger: logger}
}

// Query lists the published catalog.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Course, error) {
	res := svc.api.Get(ctx, "/api/courses", apiclient.Query(filter.values()))
	var courses []Course
	if err := res.Into(&courses, "querying courses", nil); err != nil {
		return nil, err
	}
	return courses, nil
}

func (svc *Service) Get(ctx context.Context, id core.ID) (Course, error) {
	if id == "" {
		return Course{}, errMissingCourseID
	}
	res := svc.api.Get(ctx, "/api/courses/"+string(id))
	var c Course
	if err := res.Into(&c, "getting course", apiclient.NotFound(ErrNotFound)); err != nil {
		return Course{}, err
	}
	return c, nil
}

// Chapters returns the course chapters (with their lessons) in display order.
func (svc *Service) Chapters(ctx context.Context, courseID core.ID) ([]Chapter, error) {
	if courseID == "" {
		return nil, errMissingCourseID
	}
	res := svc.api.Get(ctx, "/api/courses/"+string(courseID)+"/chapters")
	var chapters []Chapter
	if err := res.Into(&chapters, "getting chapters", apiclient.NotFound(ErrNotFound)); err != nil {
		return nil, err
	}
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Order < chapters[j].Order })
	for _, ch := range chapters {
		lessons := ch.Lessons
		sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].Order < lessons[j].Order })
	}
	return chapters, nil
}

func (svc *Service) Lesson(ctx context.Context, id core.ID) (Lesson, error) {
	if id == "" {
		return Lesson{}, errMissingLessonID
	}
	res := svc.api.Get(ctx, "/api/lessons/"+string(id), apiclient.Protected())
	var l Lesson
	if err := res.Into(&l, "getting lesson", apiclient.NotFound(ErrLessonNotFound)); err != nil {
		return Lesson{}, err
	}
	return l, nil
}

func (svc *Service) Enroll(ctx context.Context, courseID core.ID) (Enrollment, error) {
	if courseID == "" {
		return Enrollment{}, errMissingCourseID
	}
	body := map[string]core.ID{"courseId": courseID}
	res := svc.api.Post(ctx, "/api/enrollments", body, apiclient.Protected())
	if res.Status == http.StatusConflict {
		return Enrollment{}, errors.Wrap(ErrAlreadyEnrolled, res.Error)
	}
	var e Enrollment
	if err := res.Into(&e, "enrolling", apiclient.NotFound(ErrNotFound)); err != nil {
		return Enrollment{}, err
	}
	if e.CourseID == "" {
		e.CourseID = courseID
	}
	svc.logger.Info("enrolled", map[string]interface{}{"courseId": courseID})
	return e, nil
}

func (svc *Service) Drop(ctx context.Context, courseID core.ID) error {
	if courseID == "" {
		return errMissingCourseID
	}
	res := svc.api.Delete(ctx, "/api/enrollments/"+string(courseID), apiclient.Protected())
	if err := res.Into(nil, "dropping course", apiclient.NotFound(ErrNotEnrolled)); err != nil {
		return err
	}
	svc.logger.Info("dropped course", map[string]interface{}{"courseId": courseID})
	return nil
}

// Enrollments lists the current user's enrollments.
func (svc *Service) Enrollments(ctx context.Context) ([]Enrollment, error) {
	res := svc.api.Get(ctx, "/api/enrollments/my", apiclient.Protected())
	var enrollments []Enrollment
	if err := res.Into(&enrollments, "listing enrollments", nil); err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (svc *Service) IsEnrolled(ctx context.Context, courseID core.ID) (bool, error) {
	enrollments, err := svc.Enrollments(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range enrollments {
		if e.CourseID == courseID && e.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

func (svc *Service) Progress(ctx context.Context, courseID core.ID) (Progress, error) {
	if courseID == "" {
		return Progress{}, errMissingCourseID
	}
	res := svc.api.Get(ctx, "/api/progress/course/"+string(courseID), apiclient.Protected())
	var p Progress
	if err := res.Into(&p, "getting progress", apiclient.NotFound(ErrNotEnrolled)); err != nil {
		return Progress{}, err
	}
	return normalizeProgress(p, courseID), nil
}

// CompleteLesson marks the lesson done and returns the updated course progress.
func (svc *Service) CompleteLesson(ctx context.Context, lessonID core.ID) (Progress, error) {
	if lessonID == "" {
		return Progress{}, errMissingLessonID
	}
	res := svc.api.Post(ctx, "/api/progress/lessons/"+string(lessonID)+"/complete", nil, apiclient.Protected())
	var p Progress
	if err := res.Into(&p, "completing lesson", apiclient.NotFound(ErrLessonNotFound)); err != nil {
		return Progress{}, err
	}
	return normalizeProgress(p, ""), nil
}

// normalizeProgress fills the percentage when the backend leaves it out.
func normalizeProgress(p Progress, courseID core.ID) Progress {
	if p.CourseID == "" {
		p.CourseID = courseID
	}
	if p.Percent == 0 && p.TotalLessons > 0 {
		p.Percent = float64(len(p.CompletedLessons)) * 100 / float64(p.TotalLessons)
	}
	if p.TotalLessons > 0 && len(p.CompletedLessons) >= p.TotalLessons {
		p.IsCompleted = true
	}
	return p
}
