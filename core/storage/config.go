package storage

// Config holds configuration for the storage provider.
type Config struct {
	// Endpoint is the URL of the storage service. Empty means AWS S3.
	Endpoint string `mapstructure:"endpoint" default:""`
	// AccessKey is the access key ID for authentication. Empty falls back
	// to the SDK default credential chain.
	AccessKey string `mapstructure:"access_key" default:""`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:""`
	// Region is the location of the bucket (e.g., us-east-1).
	Region string `mapstructure:"region" default:"us-east-1"`
	// PathStyle forces path-style addressing, needed by most self-hosted
	// S3-compatible backends.
	PathStyle bool `mapstructure:"path_style" default:"false"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
