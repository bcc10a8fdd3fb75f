package admin

import (
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/kohkiet/swp-lms/core"
	"github.com/kohkiet/swp-lms/core/apiclient"
)

type (
	// Upload is a file sent along an editor form.
	Upload struct {
		Filename string
		Content  io.Reader
	}

	// NewCourse contains information needed to create a new course.
	NewCourse struct {
		Title       string  `json:"title" validate:"required,notblank,max=200"`
		Description string  `json:"description" validate:"max=2000"`
		CourseType  string  `json:"courseType" validate:"required,notblank,max=50"`
		AgeGroup    string  `json:"ageGroup" validate:"required,notblank,max=50"`
		IsPublished bool    `json:"isPublished"`
		Image       *Upload `json:"-"`
	}

	// UpdateCourse contains the editable course fields. The image is kept when nil.
	UpdateCourse struct {
		Title       string  `json:"title" validate:"required,notblank,max=200"`
		Description string  `json:"description" validate:"max=2000"`
		CourseType  string  `json:"courseType" validate:"required,notblank,max=50"`
		AgeGroup    string  `json:"ageGroup" validate:"required,notblank,max=50"`
		IsPublished bool    `json:"isPublished"`
		Image       *Upload `json:"-"`
	}

	NewChapter struct {
		CourseID    core.ID `json:"courseId" validate:"required"`
		Title       string  `json:"title" validate:"required,notblank,max=200"`
		Description string  `json:"description" validate:"max=2000"`
		Order       int     `json:"orderIndex" validate:"min=0"`
	}

	NewLesson struct {
		ChapterID       core.ID `json:"chapterId" validate:"required"`
		Title           string  `json:"title" validate:"required,notblank,max=200"`
		Content         string  `json:"content"`
		VideoURL        string  `json:"videoUrl,omitempty" validate:"omitempty,url"`
		DurationMinutes int     `json:"durationMinutes" validate:"min=0,max=600"`
		Order           int     `json:"orderIndex" validate:"min=0"`
	}

	NewQuiz struct {
		LessonID         core.ID       `json:"lessonId" validate:"required"`
		Title            string        `json:"title" validate:"required,notblank,max=200"`
		Description      string        `json:"description" validate:"max=2000"`
		TimeLimitMinutes int           `json:"timeLimitMinutes" validate:"min=0,max=300"`
		PassingScore     float64       `json:"passingScore" validate:"min=0,max=100"`
		Questions        []NewQuestion `json:"questions" validate:"dive"`
	}

	NewQuestion struct {
		Text    string      `json:"text" validate:"required,notblank,max=1000"`
		Answers []NewAnswer `json:"answers" validate:"min=2,dive"`
	}

	NewAnswer struct {
		Text      string `json:"text" validate:"required,notblank,max=500"`
		IsCorrect bool   `json:"isCorrect"`
	}

	User struct {
		ID        core.ID   `json:"id"`
		Email     string    `json:"email"`
		FullName  string    `json:"fullName"`
		Role      string    `json:"role"`
		IsActive  bool      `json:"isActive"`
		CreatedAt time.Time `json:"createdAt"`
	}

	UserFilter struct {
		Search string
		Role   string
	}

	Dashboard struct {
		TotalUsers        int `json:"totalUsers"`
		TotalCourses      int `json:"totalCourses"`
		PublishedCourses  int `json:"publishedCourses"`
		TotalEnrollments  int `json:"totalEnrollments"`
		ActiveEnrollments int `json:"activeEnrollments"`
		CompletedCourses  int `json:"completedCourses"`
		SurveysSubmitted  int `json:"surveysSubmitted"`
	}
)

func (nc NewCourse) form() *apiclient.Form {
	return courseForm(nc.Title, nc.Description, nc.CourseType, nc.AgeGroup, nc.IsPublished, nc.Image)
}

func (uc UpdateCourse) form() *apiclient.Form {
	return courseForm(uc.Title, uc.Description, uc.CourseType, uc.AgeGroup, uc.IsPublished, uc.Image)
}

// courseForm builds the multipart body; field names are the backend's.
func courseForm(title, desc, courseType, ageGroup string, published bool, img *Upload) *apiclient.Form {
	f := apiclient.NewForm().
		Set("Title", core.CleanString(title)).
		Set("Description", core.CleanString(desc)).
		Set("CourseType", core.CleanString(courseType)).
		Set("AgeGroup", core.CleanString(ageGroup)).
		Set("IsPublished", strconv.FormatBool(published))
	if img != nil && img.Content != nil {
		f.File("Image", img.Filename, img.Content)
	}
	return f
}

func (f UserFilter) values() url.Values {
	q := make(url.Values)
	if s := core.CleanString(f.Search); s != "" {
		q.Set("search", s)
	}
	if s := core.CleanString(f.Role, true /* lower */); s != "" {
		q.Set("role", s)
	}
	return q
}
