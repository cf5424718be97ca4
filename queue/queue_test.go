package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/modqueue/triage/cases"
	"github.com/modqueue/triage/directory"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func testCase(authorID string, submittedAt time.Time) *cases.Case {
	return &cases.Case{
		Reporter: directory.User{ID: "10", Name: "alice"},
		Message: &directory.Message{
			ID: "301", GuildID: "100", ChannelID: "200",
			Author: directory.User{ID: authorID},
			Text:   "some message",
		},
		SubmittedAt: submittedAt,
		Status:      cases.StatusComplete,
	}
}

func TestCaseQueuePopHighest(t *testing.T) {
	assert := assert.New(t)

	q := NewCaseQueue()
	for i, score := range []float64{0.2, 0.9, 0.5, 0.7} {
		q.Push(score, testCase("11", epoch.Add(time.Duration(i)*time.Hour)))
	}
	assert.Equal(4, q.Len())

	for _, want := range []float64{0.9, 0.7, 0.5, 0.2} {
		score, c, err := q.PopHighest()
		assert.NoError(err)
		assert.Equal(want, score)
		assert.NotNil(c)
	}

	_, _, err := q.PopHighest()
	assert.ErrorIs(err, ErrEmptyQueue)
}

func TestCaseQueuePopHighestTieBreak(t *testing.T) {
	assert := assert.New(t)

	q := NewCaseQueue()
	later := testCase("11", epoch.Add(time.Hour))
	earlier := testCase("12", epoch)
	q.Push(0.5, later)
	q.Push(0.5, earlier)

	_, c, err := q.PopHighest()
	assert.NoError(err)
	assert.Same(earlier, c)
	_, c, err = q.PopHighest()
	assert.NoError(err)
	assert.Same(later, c)
}

func TestCaseQueuePopOldest(t *testing.T) {
	assert := assert.New(t)

	q := NewCaseQueue()
	oldest := testCase("11", epoch)
	q.Push(0.3, testCase("11", epoch.Add(2*time.Hour)))
	q.Push(0.9, oldest)
	q.Push(0.6, testCase("11", epoch.Add(time.Hour)))

	score, c, err := q.PopOldest()
	assert.NoError(err)
	assert.Equal(0.9, score)
	assert.Same(oldest, c)

	// heap property still holds for score-ordered extraction
	score, _, err = q.PopHighest()
	assert.NoError(err)
	assert.Equal(0.6, score)
	score, _, err = q.PopHighest()
	assert.NoError(err)
	assert.Equal(0.3, score)

	_, _, err = q.PopOldest()
	assert.ErrorIs(err, ErrEmptyQueue)
}

func TestCaseQueueInterleaved(t *testing.T) {
	assert := assert.New(t)

	q := NewCaseQueue()
	for i, score := range []float64{0.1, 0.8, 0.4, 0.6, 0.9, 0.2} {
		q.Push(score, testCase("11", epoch.Add(time.Duration(i)*time.Minute)))
	}

	// oldest is the 0.1 case
	score, _, err := q.PopOldest()
	assert.NoError(err)
	assert.Equal(0.1, score)

	score, _, err = q.PopHighest()
	assert.NoError(err)
	assert.Equal(0.9, score)

	// next oldest is the 0.8 case
	score, _, err = q.PopOldest()
	assert.NoError(err)
	assert.Equal(0.8, score)

	score, _, err = q.PopHighest()
	assert.NoError(err)
	assert.Equal(0.6, score)
}

func TestCaseQueueRemoveWhere(t *testing.T) {
	assert := assert.New(t)

	q := NewCaseQueue()
	q.Push(0.9, testCase("11", epoch))
	q.Push(0.5, testCase("12", epoch.Add(time.Hour)))
	q.Push(0.7, testCase("11", epoch.Add(2*time.Hour)))

	removed := q.RemoveWhere(func(c *cases.Case) bool {
		return c.Message.Author.ID == "11"
	})
	assert.Equal(2, removed)
	assert.Equal(1, q.Len())

	score, c, err := q.PopHighest()
	assert.NoError(err)
	assert.Equal(0.5, score)
	assert.Equal("12", c.Message.Author.ID)
}
