package restic

import (
	"fmt"

	"bt-restic/internal/config"
)

// NewLocationFromConfig creates a Location based on the repository config type.
func NewLocationFromConfig(cfg config.RepositoryConfig) (Location, error) {
	switch cfg.Type {
	case "local":
		if cfg.Path == "" {
			return nil, fmt.Errorf("local repository requires path to be set")
		}
		return &LocalLocation{Path: cfg.Path}, nil
	case "b2":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("b2 repository requires bucket to be set")
		}
		return &B2Location{
			Bucket:     cfg.Bucket,
			Path:       cfg.Prefix,
			AccountID:  cfg.AccountID,
			AccountKey: cfg.AccountKey,
		}, nil
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 repository requires bucket to be set")
		}
		if cfg.Endpoint != "" {
			if _, err := endpointURL(cfg.Endpoint); err != nil {
				return nil, err
			}
		}
		return &S3Location{
			Endpoint:        cfg.Endpoint,
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		}, nil
	default:
		return nil, fmt.Errorf("unknown repository type: %s", cfg.Type)
	}
}
