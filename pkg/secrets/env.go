package secrets

import (
	"context"
	"os"

	"github.com/rzbill/keel/pkg/types"
)

// EnvEngineName is the id of the environment variable engine.
const EnvEngineName = "env"

// EnvEngine resolves references of the form encrypted:env!name:VAR by
// reading VAR from the process environment. It exists for CI pipelines
// that inject secrets as variables.
type EnvEngine struct {
	lookup func(string) (string, bool)
}

// NewEnvEngine creates an engine reading the process environment.
func NewEnvEngine() *EnvEngine {
	return &EnvEngine{lookup: os.LookupEnv}
}

func (*EnvEngine) Name() string { return EnvEngineName }

func (e *EnvEngine) Decrypt(_ context.Context, params Params) ([]byte, error) {
	name, ok := params.Get("name")
	if !ok || name == "" {
		return nil, types.IllegalArgumentf("env engine requires a name parameter")
	}
	value, ok := e.lookup(name)
	if !ok {
		return nil, types.NotFoundf("environment variable %s is not set", name)
	}
	return []byte(value), nil
}
