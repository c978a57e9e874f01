package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/claims-tracker/internal/entity"
)

func TestRunsXLSX(t *testing.T) {
	started := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	prob, risk := 0.87, 87.0
	step, class, msg := "llm_extraction", "external", "stage llm_extraction: all LLM attempts failed"
	runs := []entity.RunRecord{
		{
			ID:          uuid.MustParse("11111111-1111-1111-1111-111111111111"),
			FileName:    "claim.pdf",
			Stage:       "done",
			Status:      "OK",
			Probability: &prob,
			RiskScore:   &risk,
			ModelInput:  []byte(`{"instances":[{"Claim_Amount":90000}]}`),
			StartedAt:   started,
			FinishedAt:  started.Add(1500 * time.Millisecond),
		},
		{
			ID:           uuid.MustParse("22222222-2222-2222-2222-222222222222"),
			FileName:     "scan.png",
			Stage:        "text_extracted",
			Status:       "FAILED",
			FailedStep:   &step,
			ErrorClass:   &class,
			ErrorMessage: &msg,
			StartedAt:    started,
			FinishedAt:   started,
		},
	}

	b, err := NewService(nil).RunsXLSX(runs)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(Sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])

	ok := rows[1]
	assert.Equal(t, "claim.pdf", ok[1])
	assert.Equal(t, "2026-05-04 09:30:00", ok[2])
	assert.Equal(t, "1.5", ok[3])
	assert.Equal(t, "OK", ok[4])
	assert.Equal(t, "87", ok[12])
	assert.Equal(t, "90000", ok[13])

	failed := rows[2]
	assert.Equal(t, "FAILED", failed[4])
	assert.Equal(t, "llm_extraction", failed[6])
	assert.Equal(t, "external", failed[7])
	assert.True(t, strings.HasPrefix(failed[8], "stage llm_extraction"))
}

func TestRunsXLSX_Empty(t *testing.T) {
	b, err := NewService(nil).RunsXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(Sheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "é", truncate("éé", 1))
}
