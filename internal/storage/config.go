package storage

import "github.com/spf13/viper"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Enabled reports whether an endpoint was configured.
func (c *MinIOConfig) Enabled() bool {
	return c != nil && c.Endpoint != ""
}

// LoadMinIOConfig loads MinIO config from the environment (after config.LoadConfig read .env).
func LoadMinIOConfig() *MinIOConfig {
	viper.SetDefault("MINIO_BUCKET", "people-exports")
	return &MinIOConfig{
		Endpoint:  viper.GetString("MINIO_ENDPOINT"),
		AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
		SecretKey: viper.GetString("MINIO_SECRET_KEY"),
		UseSSL:    viper.GetBool("MINIO_USE_SSL"),
		Bucket:    viper.GetString("MINIO_BUCKET"),
	}
}
