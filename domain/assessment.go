package domain

import (
	"math"
	"time"
)

// TestType identifies a battery of the recruitment process
type TestType string

const (
	TestTypePortuguese      TestType = "portuguese"
	TestTypeMath            TestType = "math"
	TestTypePsychology      TestType = "psychology"
	TestTypeVisualRetention TestType = "visual_retention"
	TestTypeInterview       TestType = "interview"
)

// AllTestTypes lists every known test type
var AllTestTypes = []TestType{
	TestTypePortuguese,
	TestTypeMath,
	TestTypePsychology,
	TestTypeVisualRetention,
	TestTypeInterview,
}

// IsValid reports whether t is a known test type
func (t TestType) IsValid() bool {
	for _, known := range AllTestTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTestType converts user input into a TestType
func ParseTestType(s string) (TestType, error) {
	t := TestType(s)
	if !t.IsValid() {
		return "", ErrInvalidTestType
	}
	return t, nil
}

// TestStatus is the lifecycle state of a test instance
type TestStatus string

const (
	TestStatusNotStarted TestStatus = "not_started"
	TestStatusInProgress TestStatus = "in_progress"
	TestStatusCompleted  TestStatus = "completed"
	TestStatusExpired    TestStatus = "expired"
	TestStatusCancelled  TestStatus = "cancelled"
)

// ActiveTestStatuses are the statuses that block creating another instance of the same type
var ActiveTestStatuses = []TestStatus{TestStatusNotStarted, TestStatusInProgress}

// IsActive reports whether the status counts towards the single-active-test rule
func (s TestStatus) IsActive() bool {
	return s == TestStatusNotStarted || s == TestStatusInProgress
}

// Difficulty of a question template
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid reports whether d is empty or a known difficulty
func (d Difficulty) IsValid() bool {
	switch d {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ResponseKind tells how a question is answered
type ResponseKind string

const (
	ResponseKindMultipleChoice ResponseKind = "multiple_choice"
	ResponseKindVideo          ResponseKind = "video"
)

// IsValid reports whether k is a known response kind
func (k ResponseKind) IsValid() bool {
	return k == ResponseKindMultipleChoice || k == ResponseKindVideo
}

// QuestionOption is one selectable alternative of a question
type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// TestInstance is one candidate's attempt at a test type
type TestInstance struct {
	ID                   string
	CandidateID          uint
	TestType             TestType
	Status               TestStatus
	QuestionGroupID      uint
	Difficulty           Difficulty
	ReadingTextID        *uint
	ReadingTextVersion   *int
	RawScore             *float64
	Score                *float64
	MaxPossibleScore     *float64
	DurationLimitSeconds int
	DurationSeconds      *int
	StartedAt            *time.Time
	CompletedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time

	Questions         []QuestionSnapshot
	QuestionResponses []QuestionResponse
	VideoResponses    []VideoResponse
}

// IsTimed reports whether the instance has a duration limit
func (t *TestInstance) IsTimed() bool {
	return t.DurationLimitSeconds > 0
}

// RemainingSeconds returns the time left before the limit, nil when untimed or not started
func (t *TestInstance) RemainingSeconds(now time.Time) *int {
	if !t.IsTimed() || t.StartedAt == nil {
		return nil
	}
	deadline := t.StartedAt.Add(time.Duration(t.DurationLimitSeconds) * time.Second)
	left := int(math.Ceil(deadline.Sub(now).Seconds()))
	if left < 0 {
		left = 0
	}
	return &left
}

// Snapshot returns the snapshot with the given id, if it belongs to this instance
func (t *TestInstance) Snapshot(id string) (*QuestionSnapshot, bool) {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i], true
		}
	}
	return nil, false
}

// CandidateView projects the instance without any answer key
func (t *TestInstance) CandidateView() *CandidateTestView {
	view := &CandidateTestView{
		ID:                   t.ID,
		TestType:             t.TestType,
		Status:               t.Status,
		Difficulty:           t.Difficulty,
		ReadingTextID:        t.ReadingTextID,
		ReadingTextVersion:   t.ReadingTextVersion,
		DurationLimitSeconds: t.DurationLimitSeconds,
		StartedAt:            t.StartedAt,
		CompletedAt:          t.CompletedAt,
		Questions:            make([]CandidateQuestionView, 0, len(t.Questions)),
	}
	if t.Status == TestStatusCompleted {
		view.Score = t.Score
	}
	for _, q := range t.Questions {
		view.Questions = append(view.Questions, q.CandidateView())
	}
	return view
}

// QuestionSnapshot is the frozen copy of a question template taken when the test was created
type QuestionSnapshot struct {
	ID                 string
	TestInstanceID     string
	OriginalTemplateID uint
	Order              int
	ResponseKind       ResponseKind
	Text               string
	Options            []QuestionOption
	AllowMultiple      bool
	MaxAnswers         int
	PointValue         float64
	EstimatedSeconds   int
	CorrectOptionIDs   []string
	GradingGuide       string
	CreatedAt          time.Time
}

// NewQuestionSnapshot copies template content, answer key included
func NewQuestionSnapshot(id, testInstanceID string, order int, tpl *QuestionTemplate, now time.Time) QuestionSnapshot {
	s := QuestionSnapshot{
		ID:                 id,
		TestInstanceID:     testInstanceID,
		OriginalTemplateID: tpl.ID,
		Order:              order,
		ResponseKind:       tpl.ResponseKind,
		Text:               tpl.Text,
		Options:            append([]QuestionOption(nil), tpl.Options...),
		AllowMultiple:      tpl.AllowMultiple,
		MaxAnswers:         tpl.MaxAnswers,
		PointValue:         tpl.PointValue,
		EstimatedSeconds:   tpl.EstimatedSeconds,
		CreatedAt:          now,
	}
	if tpl.Answer != nil {
		s.CorrectOptionIDs = append([]string(nil), tpl.Answer.CorrectOptionIDs...)
		s.GradingGuide = tpl.Answer.GradingGuide
	}
	return s
}

// ValidateSelection checks the selected option ids against the question shape
func (q *QuestionSnapshot) ValidateSelection(selected []string) error {
	if q.ResponseKind != ResponseKindMultipleChoice {
		return ErrInvalidAnswerSelection.WithMessage("question does not accept multiple-choice answers")
	}
	unique := dedupe(selected)
	if len(unique) == 0 {
		return ErrInvalidAnswerSelection.WithMessage("at least one option must be selected")
	}
	if !q.AllowMultiple && len(unique) > 1 {
		return ErrInvalidAnswerSelection.WithMessage("question accepts a single option")
	}
	if q.AllowMultiple && q.MaxAnswers > 0 && len(unique) > q.MaxAnswers {
		return ErrInvalidAnswerSelection.WithMessage("too many options selected")
	}
	known := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		known[o.ID] = struct{}{}
	}
	for _, id := range unique {
		if _, ok := known[id]; !ok {
			return ErrInvalidAnswerSelection.WithMessage("unknown option " + id)
		}
	}
	return nil
}

// Grade compares the selection with the frozen answer key. Order does not matter and
// multi-select questions are all-or-nothing.
func (q *QuestionSnapshot) Grade(selected []string) (bool, float64) {
	got := dedupe(selected)
	want := dedupe(q.CorrectOptionIDs)
	if len(want) == 0 || len(got) != len(want) {
		return false, 0
	}
	set := make(map[string]struct{}, len(want))
	for _, id := range want {
		set[id] = struct{}{}
	}
	for _, id := range got {
		if _, ok := set[id]; !ok {
			return false, 0
		}
	}
	return true, q.PointValue
}

// CandidateView strips the answer key
func (q *QuestionSnapshot) CandidateView() CandidateQuestionView {
	return CandidateQuestionView{
		ID:               q.ID,
		Order:            q.Order,
		ResponseKind:     q.ResponseKind,
		Text:             q.Text,
		Options:          append([]QuestionOption(nil), q.Options...),
		AllowMultiple:    q.AllowMultiple,
		MaxAnswers:       q.MaxAnswers,
		PointValue:       q.PointValue,
		EstimatedSeconds: q.EstimatedSeconds,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// QuestionResponse is a multiple-choice answer given by the candidate
type QuestionResponse struct {
	ID                  string
	TestInstanceID      string
	QuestionSnapshotID  string
	SelectedOptionIDs   []string
	ResponseTimeSeconds int
	IsCorrect           *bool
	PointsEarned        *float64
	AnsweredAt          time.Time
}

// VideoResponse is an uploaded video answer, scored later by the AI agent
type VideoResponse struct {
	ID                 string
	TestInstanceID     string
	QuestionSnapshotID string
	BlobKey            string
	BlobURL            string
	ContentType        string
	FileSize           int64
	UploadedAt         time.Time
	AIScore            *float64
	AIFeedback         string
	AIVerdict          string
	EvaluatedAt        *time.Time
}

// CandidateQuestionView is a question as shown to the candidate
type CandidateQuestionView struct {
	ID               string           `json:"id"`
	Order            int              `json:"order"`
	ResponseKind     ResponseKind     `json:"response_kind"`
	Text             string           `json:"text"`
	Options          []QuestionOption `json:"options"`
	AllowMultiple    bool             `json:"allow_multiple"`
	MaxAnswers       int              `json:"max_answers"`
	PointValue       float64          `json:"point_value"`
	EstimatedSeconds int              `json:"estimated_seconds"`
}

// CandidateTestView is a test instance as shown to the candidate
type CandidateTestView struct {
	ID                   string                  `json:"id"`
	TestType             TestType                `json:"test_type"`
	Status               TestStatus              `json:"status"`
	Difficulty           Difficulty              `json:"difficulty,omitempty"`
	ReadingTextID        *uint                   `json:"reading_text_id,omitempty"`
	ReadingTextVersion   *int                    `json:"reading_text_version,omitempty"`
	DurationLimitSeconds int                     `json:"duration_limit_seconds"`
	StartedAt            *time.Time              `json:"started_at,omitempty"`
	CompletedAt          *time.Time              `json:"completed_at,omitempty"`
	Score                *float64                `json:"score,omitempty"`
	Questions            []CandidateQuestionView `json:"questions"`
}

// SubmittedAnswer is one answer sent with a submission or saved incrementally
type SubmittedAnswer struct {
	QuestionSnapshotID  string   `json:"question_snapshot_id" binding:"required"`
	SelectedOptionIDs   []string `json:"selected_option_ids" binding:"required"`
	ResponseTimeSeconds int      `json:"response_time_seconds"`
}

// GradedAnswer is the grading outcome of one multiple-choice question
type GradedAnswer struct {
	QuestionSnapshotID string  `json:"question_snapshot_id"`
	IsCorrect          bool    `json:"is_correct"`
	PointsEarned       float64 `json:"points_earned"`
}

// SubmissionResult summarises a completed test
type SubmissionResult struct {
	TestID           string         `json:"test_id"`
	Status           TestStatus     `json:"status"`
	RawScore         float64        `json:"raw_score"`
	MaxPossibleScore float64        `json:"max_possible_score"`
	Score            *float64       `json:"score,omitempty"`
	CorrectAnswers   int            `json:"correct_answers"`
	TotalQuestions   int            `json:"total_questions"`
	DurationSeconds  int            `json:"duration_seconds"`
	CompletedAt      time.Time      `json:"completed_at"`
	Answers          []GradedAnswer `json:"answers"`
}

// TestStatusSummary is a read-only progress projection of a test instance
type TestStatusSummary struct {
	TestID            string     `json:"test_id"`
	Status            TestStatus `json:"status"`
	QuestionsAnswered int        `json:"questions_answered"`
	TotalQuestions    int        `json:"total_questions"`
	VideosUploaded    int        `json:"videos_uploaded"`
	VideosRequired    int        `json:"videos_required"`
	CanSubmit         bool       `json:"can_submit"`
	RemainingSeconds  *int       `json:"remaining_seconds"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
}

// VideoUpload describes a video answer being uploaded
type VideoUpload struct {
	QuestionSnapshotID string
	FileName           string
	ContentType        string
	Size               int64
}

// VideoEvaluation is the asynchronous AI verdict for a video response
type VideoEvaluation struct {
	ResponseID string  `json:"response_id" binding:"required"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
	Verdict    string  `json:"verdict"`
}

// VideoScoringRequest is what the AI agent receives for a new video response
type VideoScoringRequest struct {
	ResponseID   string `json:"response_id"`
	TestID       string `json:"test_id"`
	TestType     string `json:"test_type"`
	QuestionText string `json:"question_text"`
	GradingGuide string `json:"grading_guide"`
	VideoURL     string `json:"video_url"`
}
