package survey

import (
	"fmt"
	"time"

	"github.com/kohkiet/swp-lms/core"
)

// Risk levels
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

type (
	Survey struct {
		ID          core.ID          `json:"id"`
		Title       string           `json:"title"`
		Description string           `json:"description,omitempty"`
		Type        string           `json:"surveyType"` // eg: ASSIST, CRAFFT
		Questions   []SurveyQuestion `json:"questions,omitempty"`
	}

	SurveyQuestion struct {
		ID      core.ID  `json:"id"`
		Text    string   `json:"text"`
		Order   int      `json:"orderIndex"`
		Options []Option `json:"options"`
	}

	Option struct {
		ID    core.ID `json:"id"`
		Text  string  `json:"text"`
		Score int     `json:"score"`
	}

	// Progress is the resumable state of a survey being filled in.
	Progress struct {
		SurveyID  core.ID             `json:"surveyId"`
		Answers   map[core.ID]core.ID `json:"answers"` // question -> option
		Current   int                 `json:"currentIndex"`
		UpdatedAt time.Time           `json:"updatedAt"`
	}

	SubmittedAnswer struct {
		QuestionID core.ID `json:"questionId"`
		OptionID   core.ID `json:"optionId"`
	}

	Submission struct {
		SurveyID core.ID           `json:"surveyId"`
		Answers  []SubmittedAnswer `json:"answers"`
	}

	// Outcome is the graded result of a submitted survey.
	Outcome struct {
		ID             core.ID   `json:"id,omitempty"`
		SurveyID       core.ID   `json:"surveyId"`
		SurveyTitle    string    `json:"surveyTitle,omitempty"`
		TotalScore     int       `json:"totalScore"`
		RiskLevel      string    `json:"riskLevel"`
		Recommendation string    `json:"recommendation,omitempty"`
		SubmittedAt    time.Time `json:"submittedAt"`
	}
)

func NewProgress(surveyID core.ID) Progress {
	return Progress{SurveyID: surveyID, Answers: make(map[core.ID]core.ID)}
}

// Question returns the question with the given id.
func (s Survey) Question(id core.ID) (SurveyQuestion, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return SurveyQuestion{}, false
}

func (q SurveyQuestion) Option(id core.ID) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Answer records the option chosen for a question.
func (p *Progress) Answer(questionID, optionID core.ID) {
	if p.Answers == nil {
		p.Answers = make(map[core.ID]core.ID)
	}
	p.Answers[questionID] = optionID
}

// Validate checks that every question of s has a valid answer.
func (p Progress) Validate(s Survey) error {
	var flds []core.FieldError
	if p.SurveyID != "" && p.SurveyID != s.ID {
		flds = append(flds, core.FieldError{Field: "surveyId", Error: "progress belongs to another survey"})
	}
	for i, q := range s.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		optID, ok := p.Answers[q.ID]
		if !ok {
			flds = append(flds, core.FieldError{Field: field, Error: "this question is not answered"})
			continue
		}
		if _, ok := q.Option(optID); !ok {
			flds = append(flds, core.FieldError{Field: field, Error: "invalid option"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Score previews the total score of the answered questions.
func (p Progress) Score(s Survey) int {
	var total int
	for _, q := range s.Questions {
		if opt, ok := q.Option(p.Answers[q.ID]); ok {
			total += opt.Score
		}
	}
	return total
}

// Answered counts the questions of s that have an answer.
func (p Progress) Answered(s Survey) int {
	var n int
	for _, q := range s.Questions {
		if _, ok := p.Answers[q.ID]; ok {
			n++
		}
	}
	return n
}

func (p Progress) submission(s Survey) Submission {
	sub := Submission{SurveyID: s.ID, Answers: make([]SubmittedAnswer, 0, len(s.Questions))}
	for _, q := range s.Questions {
		if opt, ok := p.Answers[q.ID]; ok {
			sub.Answers = append(sub.Answers, SubmittedAnswer{QuestionID: q.ID, OptionID: opt})
		}
	}
	return sub
}
