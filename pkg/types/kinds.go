package types

// Node kinds.
const (
	KindConfig                Kind = "config"
	KindDeployment            Kind = "deployment"
	KindProviders             Kind = "providers"
	KindKubernetesProvider    Kind = "provider.kubernetes"
	KindKubernetesAccount     Kind = "account.kubernetes"
	KindAwsProvider           Kind = "provider.aws"
	KindAwsAccount            Kind = "account.aws"
	KindGoogleProvider        Kind = "provider.google"
	KindGoogleAccount         Kind = "account.google"
	KindDockerRegistry        Kind = "provider.dockerRegistry"
	KindDockerRegistryAccount Kind = "account.dockerRegistry"
	KindCi                    Kind = "ci"
	KindJenkins               Kind = "ci.jenkins"
	KindJenkinsMaster         Kind = "master.jenkins"
	KindNotifications         Kind = "notifications"
	KindSlack                 Kind = "notification.slack"
	KindEmail                 Kind = "notification.email"
	KindSecurity              Kind = "security"
	KindAPISecurity           Kind = "security.api"
	KindUISecurity            Kind = "security.ui"
	KindAuthn                 Kind = "security.authn"
	KindAuthz                 Kind = "security.authz"
	KindPersistentStorage     Kind = "persistentStorage"
	KindS3Store               Kind = "persistentStore.s3"
	KindGcsStore              Kind = "persistentStore.gcs"
	KindRedisStore            Kind = "persistentStore.redis"
	KindDeploymentEnvironment Kind = "deploymentEnvironment"
	KindHaServices            Kind = "haServices"
	KindVault                 Kind = "vault"
	KindCanary                Kind = "canary"
	KindWebhook               Kind = "webhook"
	KindWebhookTrust          Kind = "webhook.trust"
	KindPlugins               Kind = "plugins"
	KindPlugin                Kind = "plugin"
	KindPluginRepository      Kind = "pluginRepository"
)
