package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/clintfred/ironoxide/internal/flagx"
	"github.com/clintfred/ironoxide/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "120s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into the
// runtime Config struct which uses time.Duration.
type JsonConfig struct {
	DatabaseDSN               string         `json:"database_dsn"`
	ProjectID                 int            `json:"project_id"`
	SegmentID                 string         `json:"segment_id"`
	AssertionKeyID            int            `json:"assertion_key_id"`
	AssertionKeyFile          string         `json:"assertion_key_file"`
	AssertionValidityDuration timex.Duration `json:"assertion_validity_duration"`
	S3RootUser                string         `json:"s3_root_user"`
	S3RootPassword            string         `json:"s3_root_password"`
	S3Bucket                  string         `json:"s3_bucket"`
	S3Region                  string         `json:"s3_region"`
	S3BaseEndpoint            string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.DatabaseDSN = c.DatabaseDSN
	config.ProjectID = c.ProjectID
	config.SegmentID = c.SegmentID
	config.AssertionKeyID = c.AssertionKeyID
	config.AssertionKeyFile = c.AssertionKeyFile
	config.AssertionValidityDuration = time.Duration(c.AssertionValidityDuration.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
