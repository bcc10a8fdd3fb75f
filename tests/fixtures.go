package testutil

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Seeded accounts
const (
	StudentEmail    = "student@lms.test"
	StudentPassword = "Student@123"
	AdminEmail      = "admin@lms.test"
	AdminPassword   = "Admin@123"
)

// Seeded records
const (
	CourseBasics  = "c1"
	CourseAlcohol = "c2"
	CourseParents = "c3"
	CourseDraft   = "c4"

	LessonIntro  = "l1"
	LessonTypes  = "l2"
	LessonRisk   = "l3"
	QuizRisk     = "q1" // timed, attached to LessonRisk
	QuizUntimed  = "q2" // attached to LessonTypes
	SurveyAssist = "s1"
	SurveyCrafft = "s2"
)

type (
	user struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		FullName     string    `json:"fullName"`
		Role         string    `json:"role"`
		IsActive     bool      `json:"isActive"`
		CreatedAt    time.Time `json:"createdAt"`
		passwordHash []byte
	}

	course struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		CourseType  string    `json:"courseType"`
		AgeGroup    string    `json:"ageGroup"`
		ImageURL    string    `json:"imageUrl,omitempty"`
		IsPublished bool      `json:"isPublished"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	chapter struct {
		ID          string    `json:"id"`
		CourseID    string    `json:"courseId"`
		Title       string    `json:"title"`
		Description string    `json:"description,omitempty"`
		Order       int       `json:"orderIndex"`
		Lessons     []*lesson `json:"lessons"`
	}

	lesson struct {
		ID              string `json:"id"`
		ChapterID       string `json:"chapterId"`
		Title           string `json:"title"`
		Content         string `json:"content,omitempty"`
		VideoURL        string `json:"videoUrl,omitempty"`
		DurationMinutes int    `json:"durationMinutes"`
		Order           int    `json:"orderIndex"`
		QuizID          string `json:"quizId,omitempty"`
	}

	quiz struct {
		ID               string      `json:"id"`
		LessonID         string      `json:"lessonId"`
		Title            string      `json:"title"`
		Description      string      `json:"description,omitempty"`
		TimeLimitMinutes int         `json:"timeLimitMinutes"`
		PassingScore     float64     `json:"passingScore"`
		Questions        []*question `json:"questions"`
	}

	question struct {
		ID      string    `json:"id"`
		Text    string    `json:"text"`
		Order   int       `json:"orderIndex"`
		Answers []*answer `json:"answers"`
	}

	answer struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		IsCorrect bool   `json:"isCorrect,omitempty"`
	}

	survey struct {
		ID          string            `json:"id"`
		Title       string            `json:"title"`
		Description string            `json:"description,omitempty"`
		Type        string            `json:"surveyType"`
		Questions   []*surveyQuestion `json:"questions,omitempty"`
	}

	surveyQuestion struct {
		ID      string          `json:"id"`
		Text    string          `json:"text"`
		Order   int             `json:"orderIndex"`
		Options []*surveyOption `json:"options"`
	}

	surveyOption struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Score int    `json:"score"`
	}

	enrollment struct {
		ID              string    `json:"id"`
		CourseID        string    `json:"courseId"`
		Course          *course   `json:"course,omitempty"`
		Status          string    `json:"status"`
		ProgressPercent float64   `json:"progressPercent"`
		EnrolledAt      time.Time `json:"enrolledAt"`
	}

	quizSession struct {
		ID        string
		QuizID    string
		UserID    string
		Submitted bool
	}

	// QuizSubmission is the body received by the submit endpoint.
	QuizSubmission struct {
		QuizID    string `json:"quizId"`
		SessionID string `json:"sessionId"`
		Answers   []struct {
			QuestionID string `json:"questionId"`
			AnswerID   string `json:"answerId"`
		} `json:"answers"`
		TimeSpentMinutes int `json:"timeSpentMinutes"`
	}

	quizResult struct {
		AttemptID        string    `json:"attemptId"`
		QuizID           string    `json:"quizId"`
		Score            float64   `json:"score"`
		IsPassed         bool      `json:"isPassed"`
		CorrectAnswers   int       `json:"correctAnswers"`
		TotalQuestions   int       `json:"totalQuestions"`
		PassingScore     float64   `json:"passingScore"`
		TimeSpentMinutes int       `json:"timeSpentMinutes"`
		SubmittedAt      time.Time `json:"submittedAt"`
		userID           string
	}

	surveyOutcome struct {
		ID             string    `json:"id"`
		SurveyID       string    `json:"surveyId"`
		SurveyTitle    string    `json:"surveyTitle"`
		TotalScore     int       `json:"totalScore"`
		RiskLevel      string    `json:"riskLevel"`
		Recommendation string    `json:"recommendation"`
		SubmittedAt    time.Time `json:"submittedAt"`
		userID         string
	}

	// Upload describes the last multipart course form received.
	Upload struct {
		ContentType string
		Fields      map[string]string
		Filename    string
		FileType    string
		FileContent string
	}
)

func hashPassword(pwd string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return hash
}

func (b *Backend) seed() {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	b.users = []*user{
		{ID: "u1", Email: StudentEmail, FullName: "Student One", Role: "Student", IsActive: true, CreatedAt: created, passwordHash: hashPassword(StudentPassword)},
		{ID: "u2", Email: AdminEmail, FullName: "Admin User", Role: "Admin", IsActive: true, CreatedAt: created, passwordHash: hashPassword(AdminPassword)},
		{ID: "u3", Email: "parent@lms.test", FullName: "Pat Parent", Role: "Student", IsActive: false, CreatedAt: created, passwordHash: hashPassword("Parent@123")},
	}

	b.courses = []*course{
		{ID: CourseBasics, Title: "Drug Prevention Basics", Description: "Understand substances and their risks.", CourseType: "Prevention", AgeGroup: "Teen", IsPublished: true, CreatedAt: created},
		{ID: CourseAlcohol, Title: "Saying No to Alcohol", Description: "Refusal skills for social situations.", CourseType: "Awareness", AgeGroup: "Teen", IsPublished: true, CreatedAt: created},
		{ID: CourseParents, Title: "Healthy Choices for Parents", Description: "Talking with your kids about drugs.", CourseType: "Parenting", AgeGroup: "Adult", IsPublished: true, CreatedAt: created},
		{ID: CourseDraft, Title: "Peer Pressure Workshop", Description: "Draft.", CourseType: "Workshop", AgeGroup: "Teen", CreatedAt: created},
	}

	// chapters and lessons are stored out of order on purpose
	b.chapters = []*chapter{
		{ID: "ch2", CourseID: CourseBasics, Title: "Recognizing Risk", Order: 2, Lessons: []*lesson{
			{ID: LessonRisk, ChapterID: "ch2", Title: "Warning Signs", Content: "Changes in mood...", DurationMinutes: 15, Order: 1, QuizID: QuizRisk},
		}},
		{ID: "ch1", CourseID: CourseBasics, Title: "What Are Drugs?", Order: 1, Lessons: []*lesson{
			{ID: LessonTypes, ChapterID: "ch1", Title: "Types of Substances", Content: "Stimulants, depressants...", DurationMinutes: 10, Order: 2, QuizID: QuizUntimed},
			{ID: LessonIntro, ChapterID: "ch1", Title: "Introduction", Content: "Welcome.", VideoURL: "https://videos.lms.test/intro.mp4", DurationMinutes: 5, Order: 1},
		}},
		{ID: "ch3", CourseID: CourseAlcohol, Title: "Social Pressure", Order: 1, Lessons: []*lesson{
			{ID: "l4", ChapterID: "ch3", Title: "Parties", DurationMinutes: 12, Order: 1},
		}},
	}

	b.quizzes = []*quiz{
		{ID: QuizRisk, LessonID: LessonRisk, Title: "Risk Check", TimeLimitMinutes: 30, PassingScore: 70, Questions: []*question{
			{ID: "qq2", Text: "Which is a warning sign?", Order: 2, Answers: []*answer{
				{ID: "a21", Text: "Sudden change of friends", IsCorrect: true},
				{ID: "a22", Text: "Doing homework"},
			}},
			{ID: "qq1", Text: "Is alcohol a drug?", Order: 1, Answers: []*answer{
				{ID: "a11", Text: "Yes", IsCorrect: true},
				{ID: "a12", Text: "No"},
			}},
			{ID: "qq3", Text: "Who can you talk to?", Order: 3, Answers: []*answer{
				{ID: "a31", Text: "Nobody"},
				{ID: "a32", Text: "A trusted adult", IsCorrect: true},
				{ID: "a33", Text: "A stranger online"},
			}},
		}},
		{ID: QuizUntimed, LessonID: LessonTypes, Title: "Substance Types", PassingScore: 50, Questions: []*question{
			{ID: "qu1", Text: "Caffeine is a...", Order: 1, Answers: []*answer{
				{ID: "au1", Text: "Stimulant", IsCorrect: true},
				{ID: "au2", Text: "Depressant"},
			}},
		}},
	}

	frequency := func(prefix string) []*surveyOption {
		return []*surveyOption{
			{ID: prefix + "-0", Text: "Never", Score: 0},
			{ID: prefix + "-1", Text: "Once or twice", Score: 2},
			{ID: prefix + "-2", Text: "Monthly", Score: 3},
			{ID: prefix + "-3", Text: "Weekly or more", Score: 4},
		}
	}
	b.surveys = []*survey{
		{ID: SurveyAssist, Title: "ASSIST Screening", Type: "ASSIST", Description: "Substance involvement screening.", Questions: []*surveyQuestion{
			{ID: "sq2", Text: "How often have you had a strong desire to use?", Order: 2, Options: frequency("sq2")},
			{ID: "sq1", Text: "How often have you used in the past 3 months?", Order: 1, Options: frequency("sq1")},
			{ID: "sq3", Text: "How often has use led to problems?", Order: 3, Options: frequency("sq3")},
		}},
		{ID: SurveyCrafft, Title: "CRAFFT", Type: "CRAFFT", Questions: []*surveyQuestion{
			{ID: "cq1", Text: "Have you ever ridden in a car driven by someone who was high?", Order: 1, Options: []*surveyOption{
				{ID: "cq1-no", Text: "No", Score: 0},
				{ID: "cq1-yes", Text: "Yes", Score: 1},
			}},
		}},
	}

	b.enrollments = make(map[string]map[string]*enrollment)
	b.completed = make(map[string]map[string]bool)
	b.sessions = make(map[string]*quizSession)
}
