package types

import "gopkg.in/yaml.v3"

// PersistentStoreType selects the backing store for application metadata.
type PersistentStoreType string

const (
	PersistentStoreS3    PersistentStoreType = "s3"
	PersistentStoreGcs   PersistentStoreType = "gcs"
	PersistentStoreRedis PersistentStoreType = "redis"
)

// PersistentStorage selects and configures the metadata store.
type PersistentStorage struct {
	nodeBase `yaml:"-"`

	PersistentStoreType PersistentStoreType   `yaml:"persistentStoreType,omitempty"`
	S3                  *S3PersistentStore    `yaml:"s3"`
	Gcs                 *GcsPersistentStore   `yaml:"gcs"`
	Redis               *RedisPersistentStore `yaml:"redis"`
}

func (*PersistentStorage) Kind() Kind { return KindPersistentStorage }

func (*PersistentStorage) NodeName() string { return "persistentStorage" }

func (p *PersistentStorage) slots() []slot {
	return []slot{bind("s3", &p.S3), bind("gcs", &p.Gcs), bind("redis", &p.Redis)}
}

func (p *PersistentStorage) Children() []Node { return slotChildren(p.slots()) }

func (p *PersistentStorage) Child(name string) (Node, bool) { return slotChild(p.slots(), name) }

// Selected returns the node of the selected store, or nil when none is selected.
func (p *PersistentStorage) Selected() Node {
	if p.PersistentStoreType == "" {
		return nil
	}
	n, _ := p.Child(string(p.PersistentStoreType))
	return n
}

// S3PersistentStore keeps metadata in an S3 bucket.
type S3PersistentStore struct {
	leaf `yaml:"-"`

	Bucket          string `yaml:"bucket,omitempty"`
	RootFolder      string `yaml:"rootFolder,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"accessKeyId,omitempty"`
	SecretAccessKey string `yaml:"secretAccessKey,omitempty"`
}

func (*S3PersistentStore) Kind() Kind { return KindS3Store }

func (*S3PersistentStore) NodeName() string { return "s3" }

func (s *S3PersistentStore) Secrets() []SecretField {
	return []SecretField{{Name: "secretAccessKey", Value: &s.SecretAccessKey}}
}

// GcsPersistentStore keeps metadata in a Google Cloud Storage bucket.
type GcsPersistentStore struct {
	leaf `yaml:"-"`

	Bucket     string `yaml:"bucket,omitempty"`
	Project    string `yaml:"project,omitempty"`
	RootFolder string `yaml:"rootFolder,omitempty"`
	JSONPath   string `yaml:"jsonPath,omitempty"`
}

func (*GcsPersistentStore) Kind() Kind { return KindGcsStore }

func (*GcsPersistentStore) NodeName() string { return "gcs" }

func (g *GcsPersistentStore) LocalFiles() []*string { return []*string{&g.JSONPath} }

func (g *GcsPersistentStore) Secrets() []SecretField {
	return []SecretField{{Name: "jsonPath", Value: &g.JSONPath, File: true}}
}

// RedisPersistentStore keeps metadata in the deployment's redis.
type RedisPersistentStore struct {
	leaf `yaml:"-"`
}

func (*RedisPersistentStore) Kind() Kind { return KindRedisStore }

func (*RedisPersistentStore) NodeName() string { return "redis" }

func (p *PersistentStorage) Replace(name string, n Node) error { return slotReplace(p, p.slots(), name, n) }

func (p *PersistentStorage) DecodeChild(name string, value *yaml.Node) (Node, error) {
	return slotDecode(p, p.slots(), name, value)
}
