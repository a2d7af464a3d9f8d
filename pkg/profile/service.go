package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/types"
	"github.com/rzbill/keel/pkg/utils"
)

// Service contributes runtime settings and profiles for one service type.
type Service interface {
	Type() ServiceType
	// Settings computes the default runtime settings for d.
	Settings(d *types.DeploymentConfiguration) *ServiceSettings
	// Profiles renders the profiles of an enabled service.
	Profiles(env *Env) ([]*Profile, error)
}

// SecretsDir is the staging subdirectory holding decrypted secret files.
const SecretsDir = "secrets"

// Env is the input of a profile factory for one generation run.
type Env struct {
	context.Context

	Deployment *types.DeploymentConfiguration
	Settings   *RuntimeSettings
	StagingDir string

	session *secrets.Session
}

// Secret returns the clear text of a possibly encrypted value.
func (e *Env) Secret(value string) (string, error) {
	return e.session.Decrypt(e, value)
}

// SecretFile resolves a file field. Encrypted references are decrypted and
// staged under secrets/ as name with mode 0600; the staged path is
// returned. Plain paths are returned unchanged.
func (e *Env) SecretFile(name, value string) (string, error) {
	tmp, err := e.session.DecryptAsFile(e, value)
	if err != nil {
		return "", err
	}
	if tmp == "" {
		return value, nil
	}
	dst := filepath.Join(e.StagingDir, SecretsDir, name)
	if err := utils.CopyFileAtomic(tmp, dst, 0600); err != nil {
		return "", types.Fatalf(err, "stage secret file %s", name)
	}
	return dst, nil
}

// Bindings returns the values shared by every template: deployment fields
// and the address of each service.
func (e *Env) Bindings() Bindings {
	b := Bindings{
		"deployment.name":     e.Deployment.Name,
		"deployment.version":  e.Deployment.Version,
		"deployment.timezone": e.Deployment.Timezone,
		"deployment.type":     string(e.Deployment.DeploymentEnvironment.EffectiveType()),
	}
	for t, s := range e.Settings.All() {
		s := s
		prefix := string(t) + "."
		b[prefix+"host"] = s.Host
		b[prefix+"port"] = s.Port
		b[prefix+"baseUrl"] = s.BaseURL()
		b[prefix+"enabled"] = s.Enabled
	}
	return b
}

// requiredFile reports whether value names a plain local file that
// travels with the configuration.
func requiredFile(value string) bool {
	return value != "" && !secrets.IsEncrypted(value) && filepath.IsAbs(value)
}

// secretFileName derives a stable staged name from a node path and field.
func secretFileName(n types.Node, field string) string {
	return strings.ReplaceAll(types.PathOf(n), "/", "_") + "_" + strings.ReplaceAll(field, ".", "_")
}

// Resolve replaces the secret fields of n and its descendants with clear
// text, staging secret files under secrets/. Plain local files found on
// the way are recorded as required files of p. n must belong to the
// generator's private copy of the deployment.
func (e *Env) Resolve(n types.Node, p *Profile) error {
	if h, ok := n.(types.LocalFileHolder); ok && p != nil {
		for _, f := range h.LocalFiles() {
			if requiredFile(*f) && !strings.HasPrefix(*f, e.StagingDir) {
				p.RequiredFiles = append(p.RequiredFiles, *f)
			}
		}
	}
	if h, ok := n.(types.SecretHolder); ok {
		for _, f := range h.Secrets() {
			if !secrets.IsEncrypted(*f.Value) {
				continue
			}
			var (
				clear string
				err   error
			)
			if f.File {
				clear, err = e.SecretFile(secretFileName(n, f.Name), *f.Value)
			} else {
				clear, err = e.Secret(*f.Value)
			}
			if err != nil {
				return fmt.Errorf("resolve %s of %s: %w", f.Name, types.PathOf(n), err)
			}
			*f.Value = clear
		}
	}
	for _, child := range n.Children() {
		if err := e.Resolve(child, p); err != nil {
			return err
		}
	}
	return nil
}
