package testutil

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type profile struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

func (u *user) profile() profile {
	return profile{UserID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

func (b *Backend) login(ctx echo.Context) error {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.Bind(&creds); err != nil {
		return err
	}

	b.mu.Lock()
	usr := b.userByEmail(creds.Email)
	b.mu.Unlock()
	if usr == nil || bcrypt.CompareHashAndPassword(usr.passwordHash, []byte(creds.Password)) != nil {
		return errAuthenticationFailed
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	access, err := b.generateToken(usr, time.Now().Add(tokenTTL))
	if err != nil {
		return err
	}
	return envelope(ctx, http.StatusOK, echo.Map{
		"accessToken":  access,
		"refreshToken": "refresh-" + usr.ID,
		"user":         usr.profile(),
	}, "login successful")
}

func (b *Backend) logout(ctx echo.Context) error {
	return ctx.NoContent(http.StatusNoContent)
}

// me answers with a bare profile.
func (b *Backend) me(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr.profile())
}

type courseView struct {
	*course
	ChapterCount int `json:"chapterCount"`
}

// listCourses answers with a bare array.
func (b *Backend) listCourses(ctx echo.Context) error {
	search := strings.ToLower(ctx.QueryParam("search"))
	courseType := ctx.QueryParam("courseType")
	ageGroup := ctx.QueryParam("ageGroup")

	b.mu.Lock()
	defer b.mu.Unlock()

	views := make([]courseView, 0, len(b.courses))
	for _, c := range b.courses {
		if !c.IsPublished {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Title), search) {
			continue
		}
		if courseType != "" && !strings.EqualFold(c.CourseType, courseType) {
			continue
		}
		if ageGroup != "" && !strings.EqualFold(c.AgeGroup, ageGroup) {
			continue
		}
		views = append(views, courseView{course: c, ChapterCount: len(b.courseChapters(c.ID))})
	}
	return ctx.JSON(http.StatusOK, views)
}

func (b *Backend) getCourse(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.courseByID(ctx.Param("id"))
	if c == nil {
		return replyMessage(ctx, http.StatusNotFound, "course not found")
	}
	return envelope(ctx, http.StatusOK, courseView{course: c, ChapterCount: len(b.courseChapters(c.ID))}, "")
}

// listChapters answers with an envelope wrapped in another envelope.
func (b *Backend) listChapters(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := ctx.Param("id")
	if b.courseByID(id) == nil {
		return problem(ctx, http.StatusNotFound, "course not found", nil)
	}
	inner := echo.Map{"success": true, "data": b.courseChapters(id)}
	return envelope(ctx, http.StatusOK, inner, "")
}

func (b *Backend) getLesson(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, _ := b.lessonByID(ctx.Param("id"))
	if l == nil {
		return replyMessage(ctx, http.StatusNotFound, "lesson not found")
	}
	return envelope(ctx, http.StatusOK, l, "")
}

func (b *Backend) enroll(ctx echo.Context) error {
	var body struct {
		CourseID string `json:"courseId"`
	}
	if err := ctx.Bind(&body); err != nil {
		return err
	}
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.courseByID(body.CourseID)
	if c == nil || !c.IsPublished {
		return replyMessage(ctx, http.StatusNotFound, "course not found")
	}
	mine := b.enrollments[usr.ID]
	if mine == nil {
		mine = make(map[string]*enrollment)
		b.enrollments[usr.ID] = mine
	}
	if e, ok := mine[c.ID]; ok && e.Status != "Dropped" {
		return replyMessage(ctx, http.StatusConflict, "you are already enrolled in this course")
	}
	e := &enrollment{ID: b.nextID("e"), CourseID: c.ID, Status: "Active", EnrolledAt: time.Now().UTC()}
	mine[c.ID] = e
	return envelope(ctx, http.StatusCreated, e, "enrolled")
}

func (b *Backend) drop(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.enrollments[usr.ID][ctx.Param("id")]
	if !ok || e.Status == "Dropped" {
		return problem(ctx, http.StatusNotFound, "enrollment not found", nil)
	}
	e.Status = "Dropped"
	return envelope(ctx, http.StatusOK, nil, "enrollment cancelled")
}

func (b *Backend) myEnrollments(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	list := make([]enrollment, 0, len(b.enrollments[usr.ID]))
	for courseID, e := range b.enrollments[usr.ID] {
		view := *e
		view.Course = b.courseByID(courseID)
		done, total := b.progressCounts(usr.ID, courseID)
		if total > 0 {
			view.ProgressPercent = float64(done) * 100 / float64(total)
		}
		if total > 0 && done == total && view.Status == "Active" {
			view.Status = "Completed"
		}
		list = append(list, view)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CourseID < list[j].CourseID })
	return envelope(ctx, http.StatusOK, list, "")
}

// courseProgress answers with a bare object without the percentage.
func (b *Backend) courseProgress(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	courseID := ctx.Param("id")
	if !b.isEnrolled(usr.ID, courseID) {
		return replyMessage(ctx, http.StatusNotFound, "not enrolled in this course")
	}
	return ctx.JSON(http.StatusOK, b.progress(usr.ID, courseID))
}

func (b *Backend) completeLesson(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	l, ch := b.lessonByID(ctx.Param("id"))
	if l == nil {
		return replyMessage(ctx, http.StatusNotFound, "lesson not found")
	}
	if !b.isEnrolled(usr.ID, ch.CourseID) {
		return problem(ctx, http.StatusBadRequest, "enroll in the course first", nil)
	}
	b.markCompleted(usr.ID, l.ID)
	return envelope(ctx, http.StatusOK, b.progress(usr.ID, ch.CourseID), "lesson completed")
}

func (b *Backend) progress(userID, courseID string) echo.Map {
	completed := make([]string, 0)
	lessons := b.courseLessons(courseID)
	for _, l := range lessons {
		if b.completed[userID][l.ID] {
			completed = append(completed, l.ID)
		}
	}
	return echo.Map{
		"courseId":         courseID,
		"completedLessons": completed,
		"totalLessons":     len(lessons),
	}
}

// lookups; callers hold b.mu

func (b *Backend) contextUser(ctx echo.Context) (*user, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	usr := b.userByEmail(claims.Email)
	if usr == nil {
		return nil, errUnauthorized
	}
	return usr, nil
}

func (b *Backend) userByEmail(email string) *user {
	for _, u := range b.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u
		}
	}
	return nil
}

func (b *Backend) courseByID(id string) *course {
	for _, c := range b.courses {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (b *Backend) courseChapters(courseID string) []*chapter {
	chapters := make([]*chapter, 0)
	for _, ch := range b.chapters {
		if ch.CourseID == courseID {
			chapters = append(chapters, ch)
		}
	}
	return chapters
}

func (b *Backend) courseLessons(courseID string) []*lesson {
	var lessons []*lesson
	for _, ch := range b.courseChapters(courseID) {
		lessons = append(lessons, ch.Lessons...)
	}
	return lessons
}

func (b *Backend) lessonByID(id string) (*lesson, *chapter) {
	for _, ch := range b.chapters {
		for _, l := range ch.Lessons {
			if l.ID == id {
				return l, ch
			}
		}
	}
	return nil, nil
}

func (b *Backend) isEnrolled(userID, courseID string) bool {
	e, ok := b.enrollments[userID][courseID]
	return ok && e.Status != "Dropped"
}

func (b *Backend) markCompleted(userID, lessonID string) {
	done := b.completed[userID]
	if done == nil {
		done = make(map[string]bool)
		b.completed[userID] = done
	}
	done[lessonID] = true
}

func (b *Backend) progressCounts(userID, courseID string) (done, total int) {
	for _, l := range b.courseLessons(courseID) {
		total++
		if b.completed[userID][l.ID] {
			done++
		}
	}
	return done, total
}
