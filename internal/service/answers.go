package service

import (
	"math"
	"slices"
	"strconv"

	"eventsignup/internal/model"
)

// validateAnswers checks every question's submitted answer for structural
// validity and returns the normalized answer rows to persist. Answers to
// unknown question ids are dropped.
func validateAnswers(signupID string, questions []model.Question, inputs []model.AnswerInput) ([]model.Answer, error) {
	byQuestion := make(map[string][]string, len(inputs))
	for _, in := range inputs {
		byQuestion[in.QuestionID] = in.Answer
	}

	answers := make([]model.Answer, 0, len(questions))
	for _, q := range questions {
		answer := byQuestion[q.ID]

		if len(answer) == 0 || (len(answer) == 1 && answer[0] == "") {
			if q.Required {
				return nil, &InvalidAnswerError{QuestionID: q.ID, Question: q.Question, Reason: "answer is required"}
			}
			// Normalize empty answers so later edits see a consistent shape.
			answer = []string{}
		} else if q.Type == model.QuestionCheckbox {
			for _, option := range answer {
				if !slices.Contains(q.Options, option) {
					return nil, &InvalidAnswerError{QuestionID: q.ID, Question: q.Question, Reason: "unknown option " + strconv.Quote(option)}
				}
			}
		} else {
			if len(answer) > 1 {
				return nil, &InvalidAnswerError{QuestionID: q.ID, Question: q.Question, Reason: "multiple values not allowed"}
			}
			value := answer[0]
			switch q.Type {
			case model.QuestionText, model.QuestionTextArea:
				// Any string is fine.
			case model.QuestionNumber:
				n, err := strconv.ParseFloat(value, 64)
				if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
					return nil, &InvalidAnswerError{QuestionID: q.ID, Question: q.Question, Reason: "not a number"}
				}
			case model.QuestionSelect:
				if !slices.Contains(q.Options, value) {
					return nil, &InvalidAnswerError{QuestionID: q.ID, Question: q.Question, Reason: "unknown option " + strconv.Quote(value)}
				}
			default:
				return nil, &InvalidAnswerError{QuestionID: q.ID, Question: q.Question, Reason: "unknown question type"}
			}
		}

		answers = append(answers, model.Answer{
			QuestionID: q.ID,
			SignupID:   signupID,
			Answer:     answer,
		})
	}
	return answers, nil
}
