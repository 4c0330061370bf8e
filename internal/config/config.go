package config

import "github.com/kelseyhightower/envconfig"

// DocuSignConfig holds the provider credentials and endpoints. The private key
// is the RS256 signing key registered for the integration, PEM-encoded.
type DocuSignConfig struct {
	ClientID             string `envconfig:"DOCUSIGN_CLIENT_ID" required:"true"`
	PrivateKeyPEM        string `envconfig:"DOCUSIGN_PRIVATE_KEY" required:"true"`
	ImpersonatedUserGUID string `envconfig:"DOCUSIGN_IMPERSONATED_USER_GUID" required:"true"`
	AuthHost             string `envconfig:"DOCUSIGN_AUTH_HOST" default:"account-d.docusign.com"`
	APIBasePath          string `envconfig:"DOCUSIGN_API_BASE_PATH" default:"https://demo.docusign.net/restapi"`
	TemplateID           string `envconfig:"DOCUSIGN_TEMPLATE_ID"`
}

type APIConfig struct {
	DBDSN       string `envconfig:"DB_DSN" required:"true"`
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	DocuSign DocuSignConfig

	// Host print service renders a record into PDF bytes.
	PrintBaseURL string `envconfig:"PRINT_BASE_URL" required:"true"`
	PrintAPIKey  string `envconfig:"PRINT_API_KEY"`
	PrintFormat  string `envconfig:"PRINT_FORMAT" default:"Standard"`

	// CMS tariff push integration.
	CMSBaseURL string  `envconfig:"CMS_BASE_URL"`
	CMSAPIKey  string  `envconfig:"CMS_API_KEY"`
	CMSRPS     float64 `envconfig:"CMS_RPS" default:"5"`
	CMSBurst   int     `envconfig:"CMS_BURST" default:"10"`
}

type WebhookConfig struct {
	DBDSN       string `envconfig:"DB_DSN" required:"true"`
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
}

func LoadAPI() APIConfig {
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadWebhook() WebhookConfig {
	var cfg WebhookConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
