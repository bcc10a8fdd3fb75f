// Package testutil runs an in-process LMS backend for the client packages' tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
)

const tokenTTL = time.Hour

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// Claims represents the authorization claims carried by the issued tokens.
type Claims struct {
	jwt.StandardClaims
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role,omitempty"`
}

type failure struct {
	code int
	body string
}

// Backend is a fake LMS API. Responses deliberately mix bare values, the
// {success,data,message} envelope and problem documents.
type Backend struct {
	URL string

	srv    *httptest.Server
	app    *echo.Echo
	secret []byte

	mu             sync.Mutex
	hits           int
	failures       map[string]failure
	users          []*user
	courses        []*course
	chapters       []*chapter
	quizzes        []*quiz
	surveys        []*survey
	enrollments    map[string]map[string]*enrollment // user -> course
	completed      map[string]map[string]bool        // user -> lesson
	sessions       map[string]*quizSession
	results        []*quizResult
	outcomes       []*surveyOutcome
	lastUpload     *Upload
	lastSubmission *QuizSubmission
	seq            int
}

// NewBackend starts a seeded backend that is closed with the test.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		app:      echo.New(),
		secret:   []byte("test-secret"),
		failures: make(map[string]failure),
	}
	b.seed()
	b.setup()

	b.srv = httptest.NewServer(b.app)
	b.URL = b.srv.URL
	t.Cleanup(b.srv.Close)
	return b
}

func (b *Backend) setup() {
	b.app.HideBanner = true
	b.app.HidePort = true
	b.app.Logger.SetLevel(log.OFF)
	b.app.HTTPErrorHandler = appHTTPErrorHandler
	b.app.Use(b.countHits, b.injectFailures)

	jwtMw := middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    b.secret,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	})
	admin := adminMiddleware()

	api := b.app.Group("/api")

	api.POST("/auth/login", b.login)
	api.POST("/auth/logout", b.logout, jwtMw)
	api.GET("/auth/me", b.me, jwtMw)

	api.GET("/courses", b.listCourses)
	api.GET("/courses/:id", b.getCourse)
	api.GET("/courses/:id/chapters", b.listChapters)
	api.POST("/courses", b.createCourse, jwtMw, admin)
	api.PUT("/courses/:id", b.updateCourse, jwtMw, admin)
	api.DELETE("/courses/:id", b.deleteCourse, jwtMw, admin)

	api.POST("/chapters", b.createChapter, jwtMw, admin)
	api.PUT("/chapters/:id", b.updateChapter, jwtMw, admin)
	api.DELETE("/chapters/:id", b.deleteChapter, jwtMw, admin)

	api.GET("/lessons/:id", b.getLesson, jwtMw)
	api.GET("/lessons/:id/quiz", b.lessonQuiz, jwtMw)
	api.POST("/lessons", b.createLesson, jwtMw, admin)
	api.PUT("/lessons/:id", b.updateLesson, jwtMw, admin)
	api.DELETE("/lessons/:id", b.deleteLesson, jwtMw, admin)

	api.POST("/enrollments", b.enroll, jwtMw)
	api.GET("/enrollments/my", b.myEnrollments, jwtMw)
	api.DELETE("/enrollments/:id", b.drop, jwtMw)

	api.GET("/progress/course/:id", b.courseProgress, jwtMw)
	api.POST("/progress/lessons/:id/complete", b.completeLesson, jwtMw)

	api.GET("/quizzes/:id", b.getQuiz, jwtMw)
	api.POST("/quizzes/:id/start", b.startQuiz, jwtMw)
	api.POST("/quizzes/submit", b.submitQuiz, jwtMw)
	api.GET("/quizzes/:id/history", b.quizHistory, jwtMw)
	api.POST("/quizzes", b.createQuiz, jwtMw, admin)
	api.PUT("/quizzes/:id", b.updateQuiz, jwtMw, admin)
	api.DELETE("/quizzes/:id", b.deleteQuiz, jwtMw, admin)

	api.GET("/surveys", b.listSurveys)
	api.GET("/surveys/results/my", b.mySurveyResults, jwtMw)
	api.GET("/surveys/:id", b.getSurvey)
	api.POST("/surveys/:id/submit", b.submitSurvey, jwtMw)

	api.GET("/certificates/my", b.myCertificates, jwtMw)
	api.GET("/certificates/course/:id", b.courseCertificate, jwtMw)

	api.GET("/admin/users", b.listUsers, jwtMw, admin)
	api.GET("/admin/dashboard", b.dashboard, jwtMw, admin)
}

// Hits returns the number of requests received so far.
func (b *Backend) Hits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits
}

// Fail makes every later "METHOD path" request answer code with a raw body.
func (b *Backend) Fail(method, path string, code int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{code: code, body: body}
}

// Restore undoes Fail.
func (b *Backend) Restore(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, method+" "+path)
}

// Token issues a valid access token for a seeded account.
func (b *Backend) Token(t testing.TB, email string) string {
	t.Helper()
	return b.signed(t, email, time.Now().Add(tokenTTL))
}

// ExpiredToken issues a token that expired a minute ago.
func (b *Backend) ExpiredToken(t testing.TB, email string) string {
	t.Helper()
	return b.signed(t, email, time.Now().Add(-time.Minute))
}

func (b *Backend) signed(t testing.TB, email string, exp time.Time) string {
	b.mu.Lock()
	usr := b.userByEmail(email)
	b.mu.Unlock()
	if usr == nil {
		t.Fatalf("unknown seeded user %q", email)
	}
	token, err := b.generateToken(usr, exp)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

// LastUpload returns the last multipart course form received.
func (b *Backend) LastUpload() *Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUpload
}

// LastSubmission returns the last quiz submission received.
func (b *Backend) LastSubmission() *QuizSubmission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSubmission
}

// CompleteCourse enrolls the user when needed and marks every lesson of the course done.
func (b *Backend) CompleteCourse(email, courseID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	usr := b.userByEmail(email)
	if !b.isEnrolled(usr.ID, courseID) {
		if b.enrollments[usr.ID] == nil {
			b.enrollments[usr.ID] = make(map[string]*enrollment)
		}
		b.enrollments[usr.ID][courseID] = &enrollment{ID: b.nextID("e"), CourseID: courseID, Status: "Active", EnrolledAt: time.Now().UTC()}
	}
	for _, l := range b.courseLessons(courseID) {
		b.markCompleted(usr.ID, l.ID)
	}
}

func (b *Backend) generateToken(usr *user, exp time.Time) (string, error) {
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    "lms-test",
			Subject:   usr.ID,
			ExpiresAt: exp.Unix(),
			IssuedAt:  time.Now().Unix(),
		},
		Email:    usr.Email,
		FullName: usr.FullName,
		Role:     usr.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	str, err := token.SignedString(b.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return str, nil
}

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return prefix + "-" + strconv.Itoa(b.seq)
}

func (b *Backend) countHits(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		b.mu.Lock()
		b.hits++
		b.mu.Unlock()
		return next(ctx)
	}
}

func (b *Backend) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		b.mu.Lock()
		f, ok := b.failures[req.Method+" "+req.URL.Path]
		b.mu.Unlock()
		if !ok {
			return next(ctx)
		}
		if f.body == "" {
			return ctx.NoContent(f.code)
		}
		if strings.HasPrefix(f.body, "{") || strings.HasPrefix(f.body, "[") {
			return ctx.Blob(f.code, echo.MIMEApplicationJSONCharsetUTF8, []byte(f.body))
		}
		return ctx.HTML(f.code, f.body)
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if strings.EqualFold(claims.Role, "admin") {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	token, ok := ctx.Get("userToken").(*jwt.Token)
	if !ok {
		return nil, errUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errUnauthorized
	}
	return claims, nil
}

// appHTTPErrorHandler renders echo errors as {"error": msg} documents.
func appHTTPErrorHandler(err error, ctx echo.Context) {
	code := http.StatusInternalServerError
	var message interface{} = http.StatusText(code)

	if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
		code = herr.Code
		message = herr.Message
		if herr == middleware.ErrJWTMissing {
			code = http.StatusUnauthorized
		}
	}
	if m, ok := message.(string); ok {
		message = echo.Map{"error": m}
	}

	if !ctx.Response().Committed {
		if err = ctx.JSON(code, message); err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// envelope writes the wrapped response shape.
func envelope(ctx echo.Context, code int, data interface{}, message string) error {
	return ctx.JSON(code, echo.Map{"success": true, "data": data, "message": message})
}

// problem writes an RFC 7807 style error document.
func problem(ctx echo.Context, code int, detail string, fields map[string][]string) error {
	body := echo.Map{"title": http.StatusText(code), "status": code}
	if detail != "" {
		body["detail"] = detail
	}
	if fields != nil {
		body["errors"] = fields
	}
	return ctx.JSON(code, body)
}

func replyMessage(ctx echo.Context, code int, msg string) error {
	return ctx.JSON(code, echo.Map{"message": msg})
}
