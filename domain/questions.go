package domain

import "time"

// QuestionTemplate is a live, editable question of the question bank
type QuestionTemplate struct {
	ID               uint
	TestType         TestType
	Difficulty       Difficulty
	ResponseKind     ResponseKind
	Text             string
	Options          []QuestionOption
	AllowMultiple    bool
	MaxAnswers       int
	PointValue       float64
	EstimatedSeconds int
	IsActive         bool
	Answer           *QuestionAnswer
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// QuestionAnswer holds the answer key and grading guide of a template.
// It is never part of any candidate-facing payload.
type QuestionAnswer struct {
	ID               uint
	TemplateID       uint
	CorrectOptionIDs []string
	GradingGuide     string
}

// TemplateFilter narrows template listings
type TemplateFilter struct {
	TestType   TestType
	Difficulty Difficulty
}

// TestQuestionGroup is a named, versioned bundle of questions for one test type
type TestQuestionGroup struct {
	ID                 uint
	Name               string
	TestType           TestType
	Version            int
	IsActive           bool
	ReadingTextID      *uint
	ReadingTextVersion *int
	Questions          []GroupQuestion
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// GroupQuestion places a template at a position of a group
type GroupQuestion struct {
	ID         uint
	GroupID    uint
	TemplateID uint
	Order      int
}

// CreateGroupRequest is the admin input for a new question group
type CreateGroupRequest struct {
	Name               string
	TestType           TestType
	ReadingTextID      *uint
	ReadingTextVersion *int
	Questions          []GroupQuestionInput
}

// GroupQuestionInput is one question of a CreateGroupRequest
type GroupQuestionInput struct {
	TemplateID uint `json:"template_id" binding:"required"`
	Order      int  `json:"order"`
}

// QuestionOrdering moves a group question to a new position
type QuestionOrdering struct {
	QuestionID uint `json:"question_id" binding:"required"`
	Order      int  `json:"order"`
}

// QuestionCountPolicy is the immutable table of how many questions a group of each
// test type must hold.
type QuestionCountPolicy struct {
	counts map[TestType]int
}

// DefaultQuestionCounts are the business defaults used when configuration has none
func DefaultQuestionCounts() map[TestType]int {
	return map[TestType]int{
		TestTypePortuguese: 3,
		TestTypeMath:       2,
		TestTypeInterview:  5,
	}
}

// NewQuestionCountPolicy copies counts so later changes to the map have no effect
func NewQuestionCountPolicy(counts map[TestType]int) QuestionCountPolicy {
	cp := make(map[TestType]int, len(counts))
	for k, v := range counts {
		cp[k] = v
	}
	return QuestionCountPolicy{counts: cp}
}

// Required returns the required question count for a test type
func (p QuestionCountPolicy) Required(t TestType) (int, bool) {
	n, ok := p.counts[t]
	return n, ok
}
