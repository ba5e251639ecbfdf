package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONMap_FeedbackScore(t *testing.T) {
	cases := []struct {
		name string
		vars JSONMap
		want float64
		ok   bool
	}{
		{"numeric", JSONMap{"feedback_score": 4.5}, 4.5, true},
		{"numeric string", JSONMap{"feedback_score": "4.5"}, 4.5, true},
		{"non-numeric string", JSONMap{"feedback_score": "bad"}, 0, false},
		{"missing key", JSONMap{"sentiment": "positive"}, 0, false},
		{"nil map", nil, 0, false},
		{"unexpected type", JSONMap{"feedback_score": []interface{}{1}}, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.vars.FeedbackScore()
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestJSONMap_ScanAndValue(t *testing.T) {
	m := JSONMap{"feedback_score": "4.5", "sentiment": "positive"}

	val, err := m.Value()
	require.NoError(t, err)

	var scanned JSONMap
	require.NoError(t, scanned.Scan(val))
	require.Equal(t, "positive", scanned["sentiment"])

	score, ok := scanned.FeedbackScore()
	require.True(t, ok)
	require.Equal(t, 4.5, score)

	// NULL column round trip
	var empty JSONMap
	require.NoError(t, empty.Scan(nil))
	require.Nil(t, empty)

	nilVal, err := JSONMap(nil).Value()
	require.NoError(t, err)
	require.Nil(t, nilVal)
}

func TestValidationCall_IsTerminal(t *testing.T) {
	for status, terminal := range map[string]bool{
		CallStatusInitiated:  false,
		CallStatusInProgress: false,
		CallStatusCancelled:  false,
		CallStatusCompleted:  true,
		CallStatusFailed:     true,
	} {
		call := ValidationCall{Status: status}
		require.Equal(t, terminal, call.IsTerminal(), "status %s", status)
	}
}

func TestValidateStatus(t *testing.T) {
	require.NoError(t, ValidateStatus(CallStatusInitiated))
	require.NoError(t, ValidateStatus(CallStatusCancelled))
	require.ErrorIs(t, ValidateStatus("queued"), ErrInvalidStatus)
	require.ErrorIs(t, ValidateStatus(""), ErrInvalidStatus)
}
