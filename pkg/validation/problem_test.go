package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/keel/pkg/types"
)

func TestProblemSetSeverities(t *testing.T) {
	ps := NewProblemSet()
	assert.False(t, ps.Blocking())
	assert.NoError(t, ps.Err())

	ps.Add(&Problem{Severity: SeverityInfo, Message: "fyi"})
	ps.Add(&Problem{Severity: SeverityWarning, Message: "careful"})
	assert.Equal(t, SeverityWarning, ps.MaxSeverity())
	assert.False(t, ps.Blocking())
	assert.NoError(t, ps.Err())

	ps.Add(&Problem{Severity: SeverityError, Message: "broken", Location: "default/ci"})
	assert.True(t, ps.Blocking())

	err := ps.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrValidationFailed))
	assert.Contains(t, err.Error(), "ERROR default/ci: broken")

	var failed *FailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 3, failed.Problems.Len())
}

func TestProblemSetKeepsOrderAndFilters(t *testing.T) {
	ps := NewProblemSet()
	for _, sev := range []Severity{SeverityError, SeverityInfo, SeverityFatal, SeverityWarning} {
		ps.Add(&Problem{Severity: sev, Message: sev.String()})
	}

	var got []string
	for _, p := range ps.Problems() {
		got = append(got, p.Message)
	}
	assert.Equal(t, []string{"ERROR", "INFO", "FATAL", "WARNING"}, got)
	assert.Len(t, ps.Filter(SeverityError), 2)
	assert.Equal(t, SeverityFatal, ps.MaxSeverity())
	assert.Equal(t, map[Severity]int{SeverityError: 1, SeverityInfo: 1, SeverityFatal: 1, SeverityWarning: 1}, ps.Counts())
}

func TestProblemString(t *testing.T) {
	p := (&Problem{Severity: SeverityWarning, Message: "no botName set", Location: "default/notifications/slack"}).
		WithRemediation("set %s", "botName")
	assert.Equal(t, "WARNING default/notifications/slack: no botName set (set botName)", p.String())
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]Severity{
		"info":    SeverityInfo,
		"warn":    SeverityWarning,
		"WARNING": SeverityWarning,
		"error":   SeverityError,
		"Fatal":   SeverityFatal,
	} {
		got, err := ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSeverity("loud")
	assert.True(t, errors.Is(err, types.ErrIllegalArgument))
}
