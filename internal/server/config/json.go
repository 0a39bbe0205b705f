package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "5s" strings and integer nanoseconds (timex.Duration). Pointer fields keep
// "absent" distinct from "false"/zero so an omitted key never clobbers a default.
type JsonConfig struct {
	HTTPAddress          string         `json:"http_address"`
	MaxUploadBytes       int64          `json:"max_upload_bytes"`
	DefaultEncryptionKey string         `json:"default_encryption_key"`
	LogLevel             string         `json:"log_level"`
	ShutdownTimeout      timex.Duration `json:"shutdown_timeout"`

	AWSAccessKeyID     string `json:"aws_access_key_id"`
	AWSSecretAccessKey string `json:"aws_secret_access_key"`
	AWSRegion          string `json:"aws_region"`

	BlobBackend    string `json:"blob_backend"`
	S3Bucket       string `json:"s3_bucket"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`
	S3UsePathStyle *bool  `json:"s3_use_path_style"`

	MetadataBackend  string `json:"metadata_backend"`
	DynamoDBEndpoint string `json:"dynamodb_endpoint"`
	FileTable        string `json:"file_table"`
	ActivityTable    string `json:"activity_table"`
	DatabaseDSN      string `json:"database_dsn"`
	BoltPath         string `json:"bolt_path"`

	LogSinkBackend     string `json:"log_sink_backend"`
	CloudWatchEndpoint string `json:"cloudwatch_endpoint"`
	LogGroup           string `json:"log_group"`
	LogStream          string `json:"log_stream"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// $FILEVAULT_CONFIG) onto config. Keys missing from the file keep their
// current value. A file that cannot be read or parsed panics: the server
// must not start on a config it did not understand.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigPath()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddress, c.HTTPAddress)
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	setString(&config.DefaultEncryptionKey, c.DefaultEncryptionKey)
	setString(&config.LogLevel, c.LogLevel)
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}

	setString(&config.AWSAccessKeyID, c.AWSAccessKeyID)
	setString(&config.AWSSecretAccessKey, c.AWSSecretAccessKey)
	setString(&config.AWSRegion, c.AWSRegion)

	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}

	setString(&config.MetadataBackend, c.MetadataBackend)
	setString(&config.DynamoDBEndpoint, c.DynamoDBEndpoint)
	setString(&config.FileTable, c.FileTable)
	setString(&config.ActivityTable, c.ActivityTable)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BoltPath, c.BoltPath)

	setString(&config.LogSinkBackend, c.LogSinkBackend)
	setString(&config.CloudWatchEndpoint, c.CloudWatchEndpoint)
	setString(&config.LogGroup, c.LogGroup)
	setString(&config.LogStream, c.LogStream)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
