package validation

import (
	"context"
	"fmt"
	"os"

	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/types"
)

// Context is handed to each validator. It records problems against the
// node being validated.
type Context struct {
	context.Context

	node     types.Node
	session  *secrets.Session
	checks   Checks
	problems *ProblemSet
}

// Node returns the node under validation.
func (c *Context) Node() types.Node { return c.node }

// Deployment returns the deployment owning the node, or nil.
func (c *Context) Deployment() *types.DeploymentConfiguration {
	d, _ := types.DeploymentOf(c.node)
	return d
}

// Checks returns the external checks configured for this walk.
func (c *Context) Checks() Checks { return c.checks }

// Report records a problem of the given severity.
func (c *Context) Report(sev Severity, format string, args ...interface{}) *Problem {
	p := &Problem{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Location: types.PathOf(c.node),
	}
	c.problems.Add(p)
	return p
}

func (c *Context) Info(format string, args ...interface{}) *Problem {
	return c.Report(SeverityInfo, format, args...)
}

func (c *Context) Warn(format string, args ...interface{}) *Problem {
	return c.Report(SeverityWarning, format, args...)
}

func (c *Context) Error(format string, args ...interface{}) *Problem {
	return c.Report(SeverityError, format, args...)
}

func (c *Context) Fatal(format string, args ...interface{}) *Problem {
	return c.Report(SeverityFatal, format, args...)
}

// Decrypt resolves a possibly encrypted value. Without a session the value
// is returned as is.
func (c *Context) Decrypt(value string) (string, error) {
	if c.session == nil {
		return value, nil
	}
	return c.session.Decrypt(c, value)
}

// ReadableFile checks that the local or encrypted file named by field is
// readable and reports an error otherwise. Empty values are ignored.
func (c *Context) ReadableFile(field, value string) bool {
	if value == "" {
		return true
	}
	path := value
	if secrets.IsEncrypted(value) {
		if c.session == nil {
			return true
		}
		decrypted, err := c.session.DecryptAsFile(c, value)
		if err != nil {
			c.Error("%s cannot be decrypted: %v", field, err)
			return false
		}
		path = decrypted
	}
	f, err := os.Open(path)
	if err != nil {
		c.Error("%s %q is not readable: %v", field, value, err).
			WithRemediation("check that the file exists and is readable by the current user")
		return false
	}
	f.Close()
	return true
}
