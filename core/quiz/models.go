package quiz

import (
	"time"

	"github.com/kohkiet/swp-lms/core"
)

type (
	Quiz struct {
		ID               core.ID    `json:"id"`
		LessonID         core.ID    `json:"lessonId"`
		Title            string     `json:"title"`
		Description      string     `json:"description,omitempty"`
		TimeLimitMinutes int        `json:"timeLimitMinutes"`
		PassingScore     float64    `json:"passingScore"`
		QuestionCount    int        `json:"questionCount,omitempty"`
		Questions        []Question `json:"questions,omitempty"`
	}

	Question struct {
		ID      core.ID  `json:"id"`
		Text    string   `json:"text"`
		Order   int      `json:"orderIndex"`
		Answers []Answer `json:"answers"`
	}

	// Answer is one choice of a question. IsCorrect is only sent to editors.
	Answer struct {
		ID        core.ID `json:"id"`
		Text      string  `json:"text"`
		IsCorrect bool    `json:"isCorrect,omitempty"`
	}

	SubmittedAnswer struct {
		QuestionID core.ID `json:"questionId"`
		AnswerID   core.ID `json:"answerId"`
	}

	// Result is the graded outcome of a submitted attempt.
	Result struct {
		AttemptID        core.ID   `json:"attemptId,omitempty"`
		QuizID           core.ID   `json:"quizId"`
		Score            float64   `json:"score"`
		IsPassed         bool      `json:"isPassed"`
		CorrectAnswers   int       `json:"correctAnswers"`
		TotalQuestions   int       `json:"totalQuestions"`
		PassingScore     float64   `json:"passingScore,omitempty"`
		TimeSpentMinutes int       `json:"timeSpentMinutes"`
		SubmittedAt      time.Time `json:"submittedAt"`
	}

	// session is what the backend returns when a quiz is started.
	session struct {
		SessionID        string     `json:"sessionId"`
		Questions        []Question `json:"questions"`
		TimeLimitMinutes *int       `json:"timeLimitMinutes"`
	}

	submission struct {
		QuizID           core.ID           `json:"quizId"`
		SessionID        string            `json:"sessionId"`
		Answers          []SubmittedAnswer `json:"answers"`
		TimeSpentMinutes int               `json:"timeSpentMinutes"`
	}
)

// Timed reports whether the quiz has a time limit.
func (q Quiz) Timed() bool {
	return q.TimeLimitMinutes > 0
}

func (q Quiz) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitMinutes) * time.Minute
}

// Answer returns the answer with the given id.
func (q Question) Answer(id core.ID) (Answer, bool) {
	for _, a := range q.Answers {
		if a.ID == id {
			return a, true
		}
	}
	return Answer{}, false
}
