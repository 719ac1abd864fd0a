package candidate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// ScaleOption is one point of the Likert agreement scale.
type ScaleOption struct {
	Value string
	Label string
}

// LikertScale is the five-point agreement scale used by the statement
// variant of the profile test.
var LikertScale = []ScaleOption{
	{Value: "1", Label: "Strongly disagree"},
	{Value: "2", Label: "Disagree"},
	{Value: "3", Label: "Neutral"},
	{Value: "4", Label: "Agree"},
	{Value: "5", Label: "Strongly agree"},
}

// LikertStatements is the statement set of the Likert variant.
var LikertStatements = []string{
	"I feel comfortable taking the lead when a group lacks direction.",
	"I prefer working with others over working alone.",
	"I adjust my communication style depending on who I am talking to.",
	"I adapt quickly when plans change at the last minute.",
	"I enjoy breaking a complex problem into smaller parts.",
	"I start tasks without waiting to be told what to do.",
	"I keep my work organized even under a heavy load.",
	"I stay calm when working against a tight deadline.",
	"I actively look for opportunities to learn new skills.",
	"I like proposing new ways of doing routine work.",
	"I build professional relationships easily.",
	"I take responsibility for my mistakes without being prompted.",
	"I am comfortable switching between very different tasks in one day.",
	"I set measurable goals for myself and track them.",
	"I welcome critical feedback about my work.",
	"I plan my week before it starts.",
	"I can make decisions with incomplete information.",
	"I address disagreements directly rather than avoiding them.",
	"I invest time in developing colleagues around me.",
	"I weigh ethical implications before acting.",
}

// Trait labels for the forced-choice variant, keyed by option letter.
var traitLabels = map[string]string{
	"A": "Dominance",
	"B": "Influence",
	"C": "Steadiness",
	"D": "Conscientiousness",
}

// TestStatistics summarizes answered options for the forced-choice variant.
type TestStatistics struct {
	Counts        map[string]int
	DominantTrait string
	Answered      int
	Pending       int
}

// ProfileTest drives one profile-test session: answer collection with
// per-tab persistence, progress, and submission.
type ProfileTest struct {
	Submitting bool
	HasError   bool
	Submitted  bool

	questions []string
	groups    []OptionGroup
	scale     []ScaleOption
	answers   map[int]string

	client  *Client
	store   TabStore
	shuffle *Shuffle
}

// NewLikertTest constructs the statement variant with the built-in twenty
// statements and five-point scale.
func NewLikertTest(client *Client, store TabStore) *ProfileTest {
	t := &ProfileTest{
		questions: LikertStatements,
		scale:     LikertScale,
		answers:   make(map[int]string),
		client:    client,
		store:     store,
	}
	t.restore()
	return t
}

// NewForcedChoiceTest constructs the forced-choice variant over the given
// question groups. Option presentation order comes from the shuffle.
func NewForcedChoiceTest(client *Client, store TabStore, groups []OptionGroup) *ProfileTest {
	questions := make([]string, len(groups))
	for i := range groups {
		questions[i] = fmt.Sprintf("Question %d", i+1)
	}
	t := &ProfileTest{
		questions: questions,
		groups:    groups,
		answers:   make(map[int]string),
		client:    client,
		store:     store,
		shuffle:   NewShuffle(store),
	}
	t.restore()
	return t
}

// QuestionCount returns the number of questions in this variant.
func (t *ProfileTest) QuestionCount() int {
	return len(t.questions)
}

// Question returns the statement or prompt at index i.
func (t *ProfileTest) Question(i int) string {
	if i < 0 || i >= len(t.questions) {
		return ""
	}
	return t.questions[i]
}

// Options returns the presentation order of answer options for question i.
func (t *ProfileTest) Options(i int) []Option {
	if t.groups != nil {
		ordered := t.shuffle.Options("forced-choice", t.groups)
		if i >= 0 && i < len(ordered) {
			return ordered[i]
		}
		return nil
	}
	options := make([]Option, 0, len(t.scale))
	for _, point := range t.scale {
		options = append(options, Option{Key: point.Value, Label: point.Label})
	}
	return options
}

// SetAnswer records the answer for question i. Out-of-range indexes and
// values outside the variant's option set are rejected.
func (t *ProfileTest) SetAnswer(i int, value string) error {
	if i < 0 || i >= len(t.questions) {
		return fmt.Errorf("question index %d out of range", i)
	}
	if !t.validValue(value) {
		return fmt.Errorf("invalid answer %q", value)
	}
	t.answers[i] = value
	t.persist()
	return nil
}

func (t *ProfileTest) validValue(value string) bool {
	if t.groups != nil {
		_, ok := traitLabels[value]
		return ok
	}
	for _, point := range t.scale {
		if point.Value == value {
			return true
		}
	}
	return false
}

// Answer returns the recorded answer for question i.
func (t *ProfileTest) Answer(i int) (string, bool) {
	value, ok := t.answers[i]
	return value, ok
}

// Progress returns the completed percentage in [0, 100].
func (t *ProfileTest) Progress() float64 {
	if len(t.questions) == 0 {
		return 0
	}
	return float64(len(t.answers)) / float64(len(t.questions)) * 100
}

// Complete reports whether every question has an answer.
func (t *ProfileTest) Complete() bool {
	return len(t.answers) == len(t.questions)
}

// Statistics tallies answered options per trait. The dominant trait is the
// highest count, first wins on ties following option order; with no answers
// there is no dominant trait.
func (t *ProfileTest) Statistics() TestStatistics {
	stats := TestStatistics{
		Counts:   make(map[string]int),
		Answered: len(t.answers),
		Pending:  len(t.questions) - len(t.answers),
	}
	for _, value := range t.answers {
		stats.Counts[value]++
	}

	best := 0
	for _, letter := range []string{"A", "B", "C", "D"} {
		if count := stats.Counts[letter]; count > best {
			best = count
			stats.DominantTrait = traitLabels[letter]
		}
	}
	return stats
}

// Submit sends the completed answer set. An incomplete test is not sent.
// On success the persisted answers and shuffle seed are cleared.
func (t *ProfileTest) Submit(ctx context.Context) bool {
	if !t.Complete() {
		t.HasError = true
		return false
	}

	t.Submitting = true
	t.HasError = false
	defer func() { t.Submitting = false }()

	answers := make(map[string]string, len(t.answers))
	for i, value := range t.answers {
		answers[strconv.Itoa(i)] = value
	}

	candidateID := ""
	if t.store != nil {
		candidateID, _ = t.store.Get(candidateIDKey)
	}

	if errSubmit := t.client.SubmitProfileTest(ctx, candidateID, answers); errSubmit != nil {
		t.HasError = true
		return false
	}

	t.Submitted = true
	t.ClearTestData()
	if t.store != nil {
		t.store.Remove(candidateIDKey)
	}
	return true
}

// ClearTestData discards recorded answers and persisted test state.
func (t *ProfileTest) ClearTestData() {
	t.answers = make(map[int]string)
	if t.store != nil {
		t.store.Remove(answersKey)
	}
	if t.shuffle != nil {
		t.shuffle.Reset("forced-choice", t.groups)
	}
}

func (t *ProfileTest) persist() {
	if t.store == nil {
		return
	}
	data, errMarshal := json.Marshal(t.answers)
	if errMarshal != nil {
		return
	}
	t.store.Set(answersKey, string(data))
}

func (t *ProfileTest) restore() {
	if t.store == nil {
		return
	}
	raw, ok := t.store.Get(answersKey)
	if !ok {
		return
	}
	var answers map[int]string
	if errParse := json.Unmarshal([]byte(raw), &answers); errParse != nil {
		t.store.Remove(answersKey)
		return
	}
	for i, value := range answers {
		if i >= 0 && i < len(t.questions) && t.validValue(value) {
			t.answers[i] = value
		}
	}
}
