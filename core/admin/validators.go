package admin

import (
	"github.com/go-playground/validator/v10"

	"github.com/kohkiet/swp-lms/core"
)

var (
	oneCorrectTag  = "onecorrect"
	oneCorrectText = "at least one answer must be correct"
)

func init() {
	core.Validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(core.Validate, core.Translator, oneCorrectTag, oneCorrectText)
}

func questionStructValidation(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(NewQuestion)
	if !ok || len(q.Answers) == 0 {
		return
	}
	for _, a := range q.Answers {
		if a.IsCorrect {
			return
		}
	}
	sl.ReportError(q.Answers, "answers", "Answers", oneCorrectTag, "")
}
