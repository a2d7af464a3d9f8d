package validation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
)

// ProfileChecker verifies that a named AWS shared-config profile exists.
type ProfileChecker interface {
	CheckProfile(ctx context.Context, profile string) error
}

// RegistryChecker verifies that repositories are reachable in a registry.
// Implementations return nil for registries they do not handle.
type RegistryChecker interface {
	CheckRepositories(ctx context.Context, address string, repositories []string) error
}

// Checks are optional external checks. A nil field disables the check.
type Checks struct {
	Profiles   ProfileChecker
	Registries RegistryChecker
}

// LocalChecks returns the checks that only read local files.
func LocalChecks() Checks {
	return Checks{Profiles: SharedConfigProfiles{}}
}

// SharedConfigProfiles reads profiles from the AWS shared config and
// credentials files. Empty file lists use the SDK defaults.
type SharedConfigProfiles struct {
	ConfigFiles      []string
	CredentialsFiles []string
}

func (p SharedConfigProfiles) CheckProfile(ctx context.Context, profile string) error {
	_, err := awscfg.LoadSharedConfigProfile(ctx, profile, func(o *awscfg.LoadSharedConfigOptions) {
		if len(p.ConfigFiles) > 0 {
			o.ConfigFiles = p.ConfigFiles
		}
		if len(p.CredentialsFiles) > 0 {
			o.CredentialsFiles = p.CredentialsFiles
		}
	})
	return err
}

var ecrHostRe = regexp.MustCompile(`^(\d{12})\.dkr\.ecr\.([a-z0-9-]+)\.amazonaws\.com(\.cn)?$`)

// ParseECRAddress extracts the registry id and region of an ECR address.
func ParseECRAddress(address string) (registryID, region string, ok bool) {
	host := strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://")
	host, _, _ = strings.Cut(host, "/")
	m := ecrHostRe.FindStringSubmatch(host)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ECRChecker describes repositories through the ECR API using the default
// credential chain.
type ECRChecker struct{}

// NewECRChecker creates a checker for ECR registries.
func NewECRChecker() *ECRChecker {
	return &ECRChecker{}
}

func (*ECRChecker) CheckRepositories(ctx context.Context, address string, repositories []string) error {
	registryID, region, ok := ParseECRAddress(address)
	if !ok || len(repositories) == 0 {
		return nil
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return fmt.Errorf("ecr: load aws config: %w", err)
	}
	cli := ecr.NewFromConfig(cfg)
	out, err := cli.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RegistryId:      aws.String(registryID),
		RepositoryNames: repositories,
	})
	if err != nil {
		return fmt.Errorf("ecr: describe repositories: %w", err)
	}
	if len(out.Repositories) != len(repositories) {
		return fmt.Errorf("ecr: found %d of %d repositories", len(out.Repositories), len(repositories))
	}
	return nil
}
