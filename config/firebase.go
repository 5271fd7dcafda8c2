package config

import (
	"context"
	"encoding/base64"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// InitFirebase initializes the Firebase Admin SDK. It returns nil, nil when no
// credentials are configured.
func InitFirebase(ctx context.Context, cfg *Config) (*firebase.App, error) {
	var opt option.ClientOption
	switch {
	case cfg.FirebaseCredentialsBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.FirebaseCredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("decode firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
	case cfg.FirebaseCredentialsFile != "":
		opt = option.WithCredentialsFile(cfg.FirebaseCredentialsFile)
	default:
		return nil, nil
	}

	var fbConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return app, nil
}
