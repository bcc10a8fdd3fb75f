package testutil

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

var courseFields = []string{"Title", "Description", "CourseType", "AgeGroup", "IsPublished"}

// readCourseForm records the multipart body and validates it.
func (b *Backend) readCourseForm(ctx echo.Context) (*Upload, map[string][]string, error) {
	up := &Upload{
		ContentType: ctx.Request().Header.Get(echo.HeaderContentType),
		Fields:      make(map[string]string),
	}
	for _, name := range courseFields {
		up.Fields[name] = ctx.FormValue(name)
	}
	if fh, err := ctx.FormFile("Image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return nil, nil, err
		}
		up.Filename = fh.Filename
		up.FileType = fh.Header.Get(echo.HeaderContentType)
		up.FileContent = string(content)
	}

	fields := make(map[string][]string)
	title := strings.TrimSpace(up.Fields["Title"])
	switch {
	case title == "":
		fields["Title"] = []string{"The Title field is required."}
	case len(title) > 200:
		fields["Title"] = []string{"The Title must be at most 200 characters."}
	}
	if strings.TrimSpace(up.Fields["CourseType"]) == "" {
		fields["CourseType"] = []string{"The CourseType field is required."}
	}
	if len(fields) == 0 {
		fields = nil
	}
	return up, fields, nil
}

func (up *Upload) apply(c *course) {
	c.Title = strings.TrimSpace(up.Fields["Title"])
	c.Description = up.Fields["Description"]
	c.CourseType = up.Fields["CourseType"]
	c.AgeGroup = up.Fields["AgeGroup"]
	c.IsPublished, _ = strconv.ParseBool(up.Fields["IsPublished"])
	if up.Filename != "" {
		c.ImageURL = "/uploads/" + up.Filename
	}
}

func (b *Backend) createCourse(ctx echo.Context) error {
	up, invalid, err := b.readCourseForm(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUpload = up
	if invalid != nil {
		return problem(ctx, http.StatusBadRequest, "", invalid)
	}
	c := &course{ID: b.nextID("c"), CreatedAt: time.Now().UTC()}
	up.apply(c)
	b.courses = append(b.courses, c)
	return envelope(ctx, http.StatusCreated, c, "course created")
}

func (b *Backend) updateCourse(ctx echo.Context) error {
	up, invalid, err := b.readCourseForm(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastUpload = up
	c := b.courseByID(ctx.Param("id"))
	if c == nil {
		return replyMessage(ctx, http.StatusNotFound, "course not found")
	}
	if invalid != nil {
		return problem(ctx, http.StatusBadRequest, "", invalid)
	}
	up.apply(c)
	return envelope(ctx, http.StatusOK, c, "course updated")
}

func (b *Backend) deleteCourse(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := ctx.Param("id")
	for i, c := range b.courses {
		if c.ID == id {
			b.courses = append(b.courses[:i], b.courses[i+1:]...)
			return envelope(ctx, http.StatusOK, nil, "course deleted")
		}
	}
	return replyMessage(ctx, http.StatusNotFound, "course not found")
}

func (b *Backend) createChapter(ctx echo.Context) error {
	var ch chapter
	if err := ctx.Bind(&ch); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.courseByID(ch.CourseID) == nil {
		return replyMessage(ctx, http.StatusNotFound, "course not found")
	}
	ch.ID = b.nextID("ch")
	ch.Lessons = []*lesson{}
	b.chapters = append(b.chapters, &ch)
	return envelope(ctx, http.StatusCreated, ch, "chapter created")
}

func (b *Backend) updateChapter(ctx echo.Context) error {
	var in chapter
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.chapters {
		if ch.ID == ctx.Param("id") {
			ch.Title, ch.Description, ch.Order = in.Title, in.Description, in.Order
			return envelope(ctx, http.StatusOK, ch, "chapter updated")
		}
	}
	return replyMessage(ctx, http.StatusNotFound, "chapter not found")
}

func (b *Backend) deleteChapter(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.chapters {
		if ch.ID == ctx.Param("id") {
			b.chapters = append(b.chapters[:i], b.chapters[i+1:]...)
			return ctx.NoContent(http.StatusNoContent)
		}
	}
	return replyMessage(ctx, http.StatusNotFound, "chapter not found")
}

func (b *Backend) createLesson(ctx echo.Context) error {
	var l lesson
	if err := ctx.Bind(&l); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.chapters {
		if ch.ID == l.ChapterID {
			l.ID = b.nextID("l")
			ch.Lessons = append(ch.Lessons, &l)
			return envelope(ctx, http.StatusCreated, l, "lesson created")
		}
	}
	return replyMessage(ctx, http.StatusNotFound, "chapter not found")
}

func (b *Backend) updateLesson(ctx echo.Context) error {
	var in lesson
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	l, _ := b.lessonByID(ctx.Param("id"))
	if l == nil {
		return replyMessage(ctx, http.StatusNotFound, "lesson not found")
	}
	l.Title, l.Content, l.VideoURL = in.Title, in.Content, in.VideoURL
	l.DurationMinutes, l.Order = in.DurationMinutes, in.Order
	return envelope(ctx, http.StatusOK, l, "lesson updated")
}

func (b *Backend) deleteLesson(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.chapters {
		for i, l := range ch.Lessons {
			if l.ID == ctx.Param("id") {
				ch.Lessons = append(ch.Lessons[:i], ch.Lessons[i+1:]...)
				return envelope(ctx, http.StatusOK, nil, "lesson deleted")
			}
		}
	}
	return replyMessage(ctx, http.StatusNotFound, "lesson not found")
}

func (b *Backend) createQuiz(ctx echo.Context) error {
	var q quiz
	if err := ctx.Bind(&q); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, _ := b.lessonByID(q.LessonID); l == nil {
		return replyMessage(ctx, http.StatusNotFound, "lesson not found")
	}
	q.ID = b.nextID("q")
	for i, qq := range q.Questions {
		qq.ID = q.ID + "-q" + strconv.Itoa(i+1)
		qq.Order = i + 1
		for j, a := range qq.Answers {
			a.ID = qq.ID + "-a" + strconv.Itoa(j+1)
		}
	}
	b.quizzes = append(b.quizzes, &q)
	return envelope(ctx, http.StatusCreated, q, "quiz created")
}

func (b *Backend) updateQuiz(ctx echo.Context) error {
	var in quiz
	if err := ctx.Bind(&in); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.quizByID(ctx.Param("id"))
	if q == nil {
		return replyMessage(ctx, http.StatusNotFound, "quiz not found")
	}
	q.Title, q.Description = in.Title, in.Description
	q.TimeLimitMinutes, q.PassingScore = in.TimeLimitMinutes, in.PassingScore
	return envelope(ctx, http.StatusOK, q, "quiz updated")
}

func (b *Backend) deleteQuiz(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, q := range b.quizzes {
		if q.ID == ctx.Param("id") {
			b.quizzes = append(b.quizzes[:i], b.quizzes[i+1:]...)
			return envelope(ctx, http.StatusOK, nil, "quiz deleted")
		}
	}
	return replyMessage(ctx, http.StatusNotFound, "quiz not found")
}

func (b *Backend) listUsers(ctx echo.Context) error {
	search := strings.ToLower(ctx.QueryParam("search"))
	role := ctx.QueryParam("role")

	b.mu.Lock()
	defer b.mu.Unlock()
	users := make([]*user, 0, len(b.users))
	for _, u := range b.users {
		if search != "" && !strings.Contains(strings.ToLower(u.Email+" "+u.FullName), search) {
			continue
		}
		if role != "" && !strings.EqualFold(u.Role, role) {
			continue
		}
		users = append(users, u)
	}
	return envelope(ctx, http.StatusOK, users, "")
}

// dashboard answers with a bare object.
func (b *Backend) dashboard(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	stats := echo.Map{
		"totalUsers":       len(b.users),
		"totalCourses":     len(b.courses),
		"surveysSubmitted": len(b.outcomes),
	}
	published, total, active, completed := 0, 0, 0, 0
	for _, c := range b.courses {
		if c.IsPublished {
			published++
		}
	}
	for userID, mine := range b.enrollments {
		for courseID, e := range mine {
			total++
			if e.Status == "Dropped" {
				continue
			}
			active++
			if done, n := b.progressCounts(userID, courseID); n > 0 && done == n {
				completed++
			}
		}
	}
	stats["publishedCourses"] = published
	stats["totalEnrollments"] = total
	stats["activeEnrollments"] = active
	stats["completedCourses"] = completed
	return ctx.JSON(http.StatusOK, stats)
}
