package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/idgate/internal/flagx"
	"github.com/dmitrijs2005/idgate/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// "15m"-style strings or integer nanoseconds. Absent keys keep the values
// already present in Config.
type JsonConfig struct {
	EndpointAddrHTTP        *string         `json:"endpoint_addr_http"`
	DatabaseDSN             *string         `json:"database_dsn"`
	SecretKey               *string         `json:"secret_key"`
	TokenValidityDuration   *timex.Duration `json:"token_validity_duration"`
	S3RootUser              *string         `json:"s3_root_user"`
	S3RootPassword          *string         `json:"s3_root_password"`
	S3Region                *string         `json:"s3_region"`
	S3BaseEndpoint          *string         `json:"s3_base_endpoint"`
	S3ProofBucket           *string         `json:"s3_proof_bucket"`
	S3DocumentBucket        *string         `json:"s3_document_bucket"`
	S3Timeout               *timex.Duration `json:"s3_timeout"`
	PresignValidityDuration *timex.Duration `json:"presign_validity_duration"`
	MaxUploadBytes          *int64          `json:"max_upload_bytes"`
	LogLevel                *string         `json:"log_level"`
}

// parseJson overlays the file named by -c / -config onto config. Without
// the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3ProofBucket, c.S3ProofBucket)
	setString(&config.S3DocumentBucket, c.S3DocumentBucket)
	setDuration(&config.S3Timeout, c.S3Timeout)
	setDuration(&config.PresignValidityDuration, c.PresignValidityDuration)
	if c.MaxUploadBytes != nil {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
	setString(&config.LogLevel, c.LogLevel)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
