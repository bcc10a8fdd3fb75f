package course

import (
	"net/url"
	"strings"
	"time"

	"github.com/kohkiet/swp-lms/core"
)

// Enrollment statuses
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusDropped   = "dropped"
)

type (
	Course struct {
		ID           core.ID   `json:"id"`
		Title        string    `json:"title"`
		Description  string    `json:"description"`
		CourseType   string    `json:"courseType"`
		AgeGroup     string    `json:"ageGroup"`
		ImageURL     string    `json:"imageUrl,omitempty"`
		IsPublished  bool      `json:"isPublished"`
		ChapterCount int       `json:"chapterCount,omitempty"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	Chapter struct {
		ID          core.ID  `json:"id"`
		CourseID    core.ID  `json:"courseId"`
		Title       string   `json:"title"`
		Description string   `json:"description,omitempty"`
		Order       int      `json:"orderIndex"`
		Lessons     []Lesson `json:"lessons,omitempty"`
	}

	Lesson struct {
		ID              core.ID `json:"id"`
		ChapterID       core.ID `json:"chapterId"`
		Title           string  `json:"title"`
		Content         string  `json:"content,omitempty"`
		VideoURL        string  `json:"videoUrl,omitempty"`
		DurationMinutes int     `json:"durationMinutes"`
		Order           int     `json:"orderIndex"`
		QuizID          core.ID `json:"quizId,omitempty"`
	}

	Enrollment struct {
		ID              core.ID   `json:"id"`
		CourseID        core.ID   `json:"courseId"`
		Course          *Course   `json:"course,omitempty"`
		Status          string    `json:"status"`
		ProgressPercent float64   `json:"progressPercent"`
		EnrolledAt      time.Time `json:"enrolledAt"`
	}

	Progress struct {
		CourseID         core.ID   `json:"courseId"`
		CompletedLessons []core.ID `json:"completedLessons"`
		TotalLessons     int       `json:"totalLessons"`
		Percent          float64   `json:"percent"`
		IsCompleted      bool      `json:"isCompleted"`
	}

	// QueryFilter narrows the catalog. Empty fields are ignored.
	QueryFilter struct {
		Search     string
		CourseType string
		AgeGroup   string
	}
)

// HasCompleted reports whether the lesson is in the completed set.
func (p Progress) HasCompleted(lessonID core.ID) bool {
	for _, id := range p.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// IsActive reports whether the enrollment still gives access to the course.
func (e Enrollment) IsActive() bool {
	return !strings.EqualFold(e.Status, StatusDropped)
}

func (f QueryFilter) values() url.Values {
	q := make(url.Values)
	if s := core.CleanString(f.Search); s != "" {
		q.Set("search", s)
	}
	if s := core.CleanString(f.CourseType); s != "" {
		q.Set("courseType", s)
	}
	if s := core.CleanString(f.AgeGroup); s != "" {
		q.Set("ageGroup", s)
	}
	return q
}
