package testutil

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// public strips the answer key.
func (q *quiz) public() quiz {
	pub := *q
	pub.Questions = make([]*question, len(q.Questions))
	for i, qq := range q.Questions {
		cp := *qq
		cp.Answers = make([]*answer, len(qq.Answers))
		for j, a := range qq.Answers {
			cp.Answers[j] = &answer{ID: a.ID, Text: a.Text}
		}
		pub.Questions[i] = &cp
	}
	return pub
}

func (b *Backend) quizByID(id string) *quiz {
	for _, q := range b.quizzes {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (b *Backend) getQuiz(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.quizByID(ctx.Param("id"))
	if q == nil {
		return replyMessage(ctx, http.StatusNotFound, "quiz not found")
	}
	return envelope(ctx, http.StatusOK, q.public(), "")
}

func (b *Backend) lessonQuiz(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, q := range b.quizzes {
		if q.LessonID == ctx.Param("id") {
			return envelope(ctx, http.StatusOK, q.public(), "")
		}
	}
	return replyMessage(ctx, http.StatusNotFound, "this lesson has no quiz")
}

func (b *Backend) startQuiz(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.quizByID(ctx.Param("id"))
	if q == nil {
		return replyMessage(ctx, http.StatusNotFound, "quiz not found")
	}
	sess := &quizSession{ID: uuid.NewString(), QuizID: q.ID, UserID: usr.ID}
	b.sessions[sess.ID] = sess

	var limit *int
	if q.TimeLimitMinutes > 0 {
		limit = &q.TimeLimitMinutes
	}
	return envelope(ctx, http.StatusOK, echo.Map{
		"sessionId":        sess.ID,
		"questions":        q.public().Questions,
		"timeLimitMinutes": limit,
	}, "quiz started")
}

func (b *Backend) submitQuiz(ctx echo.Context) error {
	var sub QuizSubmission
	if err := ctx.Bind(&sub); err != nil {
		return err
	}
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSubmission = &sub

	sess, ok := b.sessions[sub.SessionID]
	if !ok || sess.UserID != usr.ID || sess.QuizID != sub.QuizID {
		return replyMessage(ctx, http.StatusBadRequest, "invalid or expired quiz session")
	}
	if sess.Submitted {
		return replyMessage(ctx, http.StatusConflict, "this quiz session was already submitted")
	}
	sess.Submitted = true

	q := b.quizByID(sess.QuizID)
	chosen := make(map[string]string, len(sub.Answers))
	for _, a := range sub.Answers {
		chosen[a.QuestionID] = a.AnswerID
	}
	correct := 0
	for _, qq := range q.Questions {
		for _, a := range qq.Answers {
			if a.IsCorrect && chosen[qq.ID] == a.ID {
				correct++
			}
		}
	}
	score := math.Round(float64(correct)*10000/float64(len(q.Questions))) / 100

	res := &quizResult{
		AttemptID:        b.nextID("attempt"),
		QuizID:           q.ID,
		Score:            score,
		IsPassed:         score >= q.PassingScore,
		CorrectAnswers:   correct,
		TotalQuestions:   len(q.Questions),
		PassingScore:     q.PassingScore,
		TimeSpentMinutes: sub.TimeSpentMinutes,
		SubmittedAt:      time.Now().UTC(),
		userID:           usr.ID,
	}
	b.results = append(b.results, res)
	return envelope(ctx, http.StatusOK, res, "quiz submitted")
}

func (b *Backend) quizHistory(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.quizByID(ctx.Param("id")) == nil {
		return replyMessage(ctx, http.StatusNotFound, "quiz not found")
	}
	history := make([]*quizResult, 0)
	for _, r := range b.results {
		if r.userID == usr.ID && r.QuizID == ctx.Param("id") {
			history = append(history, r)
		}
	}
	return envelope(ctx, http.StatusOK, history, "")
}

func (b *Backend) surveyByID(id string) *survey {
	for _, s := range b.surveys {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// listSurveys answers with a bare array of summaries.
func (b *Backend) listSurveys(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := make([]survey, 0, len(b.surveys))
	for _, s := range b.surveys {
		summary := *s
		summary.Questions = nil
		list = append(list, summary)
	}
	return ctx.JSON(http.StatusOK, list)
}

func (b *Backend) getSurvey(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.surveyByID(ctx.Param("id"))
	if s == nil {
		return replyMessage(ctx, http.StatusNotFound, "survey not found")
	}
	return envelope(ctx, http.StatusOK, s, "")
}

func (b *Backend) submitSurvey(ctx echo.Context) error {
	var sub struct {
		SurveyID string `json:"surveyId"`
		Answers  []struct {
			QuestionID string `json:"questionId"`
			OptionID   string `json:"optionId"`
		} `json:"answers"`
	}
	if err := ctx.Bind(&sub); err != nil {
		return err
	}
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.surveyByID(ctx.Param("id"))
	if s == nil {
		return replyMessage(ctx, http.StatusNotFound, "survey not found")
	}
	chosen := make(map[string]string, len(sub.Answers))
	for _, a := range sub.Answers {
		chosen[a.QuestionID] = a.OptionID
	}

	total := 0
	var missing []string
	for _, q := range s.Questions {
		found := false
		for _, o := range q.Options {
			if chosen[q.ID] == o.ID {
				total += o.Score
				found = true
			}
		}
		if !found {
			missing = append(missing, fmt.Sprintf("question %s is not answered", q.ID))
		}
	}
	if len(missing) > 0 {
		return problem(ctx, http.StatusBadRequest, "", map[string][]string{"answers": missing})
	}

	risk, advice := riskLevel(total)
	b.seq++
	out := &surveyOutcome{
		ID:             fmt.Sprintf("r-%d", b.seq),
		SurveyID:       s.ID,
		SurveyTitle:    s.Title,
		TotalScore:     total,
		RiskLevel:      risk,
		Recommendation: advice,
		SubmittedAt:    time.Date(2024, 3, 1, 0, b.seq, 0, 0, time.UTC),
		userID:         usr.ID,
	}
	b.outcomes = append(b.outcomes, out)
	return envelope(ctx, http.StatusCreated, out, "survey submitted")
}

func riskLevel(score int) (level, advice string) {
	switch {
	case score >= 9:
		return "High", "Please book a session with a counselor."
	case score >= 4:
		return "Moderate", "Consider joining a prevention course."
	default:
		return "Low", "Keep making healthy choices."
	}
}

// mySurveyResults lists the user's outcomes oldest first.
func (b *Backend) mySurveyResults(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	mine := make([]*surveyOutcome, 0)
	for _, o := range b.outcomes {
		if o.userID == usr.ID {
			mine = append(mine, o)
		}
	}
	return envelope(ctx, http.StatusOK, mine, "")
}

type certificate struct {
	ID                string    `json:"id"`
	CertificateNumber string    `json:"certificateNumber"`
	CourseID          string    `json:"courseId"`
	CourseTitle       string    `json:"courseTitle"`
	UserName          string    `json:"userName"`
	IssuedAt          time.Time `json:"issuedAt"`
}

func (b *Backend) certificate(usr *user, courseID string) *certificate {
	c := b.courseByID(courseID)
	if c == nil || !b.isEnrolled(usr.ID, courseID) {
		return nil
	}
	if done, total := b.progressCounts(usr.ID, courseID); total == 0 || done < total {
		return nil
	}
	return &certificate{
		ID:                "cert-" + courseID + "-" + usr.ID,
		CertificateNumber: "LMS-2024-" + courseID + "-" + usr.ID,
		CourseID:          courseID,
		CourseTitle:       c.Title,
		UserName:          usr.FullName,
		IssuedAt:          time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (b *Backend) courseCertificate(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	cert := b.certificate(usr, ctx.Param("id"))
	if cert == nil {
		return replyMessage(ctx, http.StatusNotFound, "certificate not available")
	}
	return envelope(ctx, http.StatusOK, cert, "")
}

// myCertificates answers with a bare array.
func (b *Backend) myCertificates(ctx echo.Context) error {
	usr, err := b.contextUser(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	certs := make([]*certificate, 0)
	for courseID := range b.enrollments[usr.ID] {
		if cert := b.certificate(usr, courseID); cert != nil {
			certs = append(certs, cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].CourseID < certs[j].CourseID })
	return ctx.JSON(http.StatusOK, certs)
}
