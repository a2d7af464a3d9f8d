package format

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/keel/pkg/validation"
)

func testProblems() *validation.ProblemSet {
	ps := validation.NewProblemSet()
	ps.Add(&validation.Problem{Severity: validation.SeverityWarning, Location: "default/persistentStorage", Message: "no store selected"})
	ps.Add((&validation.Problem{Severity: validation.SeverityError, Location: "default/ci/jenkins/masters/ci", Message: "no address set"}).
		WithRemediation("set the master URL"))
	ps.Add(&validation.Problem{Severity: validation.SeverityError, Location: "default/ci/jenkins/masters/ci", Message: "password cannot be decrypted"})
	ps.Add(&validation.Problem{Severity: validation.SeverityInfo, Location: "default/canary", Message: "fyi"})
	return ps
}

func TestPrintProblems(t *testing.T) {
	EnableColor(false)
	var buf bytes.Buffer
	PrintProblems(&buf, testProblems(), validation.SeverityWarning)

	out := buf.String()
	assert.Contains(t, out, "default/ci/jenkins/masters/ci\n  ERROR   no address set\n")
	assert.Contains(t, out, "hint: set the master URL")
	assert.NotContains(t, out, "fyi")
	assert.Contains(t, out, "2 errors, 1 warning, 1 info")
}

func TestPrintNoProblems(t *testing.T) {
	EnableColor(false)
	var buf bytes.Buffer
	PrintProblems(&buf, validation.NewProblemSet(), validation.SeverityInfo)
	assert.Contains(t, buf.String(), "no problems found")
}

func TestWriteProblemsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProblemsJSON(&buf, testProblems(), validation.SeverityError))

	var out []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "ERROR", out[0]["severity"])
	assert.Equal(t, "set the master URL", out[0]["remediation"])
}
