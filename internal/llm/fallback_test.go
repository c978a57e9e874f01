package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(text string, err error) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) { return text, err }
}

func TestFirstJSON_ShortCircuits(t *testing.T) {
	called := 0
	candidates := []Candidate{
		{ID: "a", Invoke: fixed("", errors.New("boom"))},
		{ID: "b", Invoke: fixed("not json", nil)},
		{ID: "c", Invoke: fixed(`{"ok":true}`, nil)},
		{ID: "d", Invoke: func(context.Context, string) (string, error) { called++; return `{}`, nil }},
	}
	res, err := FirstJSON(context.Background(), candidates, "p", time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, "c", res.Source)
	assert.Equal(t, map[string]any{"ok": true}, res.Fields)
	assert.Equal(t, []AttemptFailure{
		{ID: "a", Reason: "boom"},
		{ID: "b", Reason: "returned non-JSON output"},
	}, res.Failures)
	assert.Zero(t, called)
}

func TestFirstJSON_AllFail(t *testing.T) {
	candidates := []Candidate{
		{ID: "m1", Invoke: fixed("", errors.New("status 500"))},
		{ID: "m2", Invoke: fixed("   ", nil)},
	}
	_, err := FirstJSON(context.Background(), candidates, "p", time.Second, nil)
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Equal(t, "m1: status 500 | m2: missing message content", agg.Error())
}

func TestFirstJSON_TimeoutIsAttemptFailure(t *testing.T) {
	slow := func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	candidates := []Candidate{
		{ID: "slow", Invoke: slow},
		{ID: "fast", Invoke: fixed(`{"a":1}`, nil)},
	}
	res, err := FirstJSON(context.Background(), candidates, "p", 20*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, "fast", res.Source)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, context.DeadlineExceeded.Error(), res.Failures[0].Reason)
}
