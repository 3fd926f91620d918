package persistence

import (
	"fmt"
	"os"
	"time"

	"robopost/domain/model"
	"robopost/infrastructure/logger"

	"github.com/joho/godotenv"
)

const (
	envAccessToken  = "X_ACCESS_TOKEN"
	envRefreshToken = "X_REFRESH_TOKEN"
	envClientID     = "X_CLIENT_ID"
	envClientSecret = "X_CLIENT_SECRET"
)

// EnvCredentialStore persists the credential in a dotenv file, the same file
// the bootstrap authorization flow writes to. Pairs with process env vars as
// a fallback so containerized deployments can inject tokens directly.
type EnvCredentialStore struct {
	path string
}

func NewEnvCredentialStore(path string) *EnvCredentialStore {
	if path == "" {
		path = ".env"
	}
	return &EnvCredentialStore{path: path}
}

func (s *EnvCredentialStore) Load() (*model.Credential, error) {
	values := map[string]string{}
	if fileValues, err := godotenv.Read(s.path); err == nil {
		values = fileValues
	}
	get := func(key string) string {
		if v, ok := values[key]; ok && v != "" {
			return v
		}
		return os.Getenv(key)
	}
	cred := &model.Credential{
		AccessToken:  get(envAccessToken),
		RefreshToken: get(envRefreshToken),
		ClientID:     get(envClientID),
		ClientSecret: get(envClientSecret),
	}
	if cred.AccessToken != "" {
		cred.ObtainedAt = time.Now().UTC()
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"path":            s.path,
		"hasAccessToken":  cred.AccessToken != "",
		"hasRefreshToken": cred.RefreshToken != "",
	}).Info("Loaded credential")
	return cred, nil
}

func (s *EnvCredentialStore) Save(cred *model.Credential) error {
	values, err := godotenv.Read(s.path)
	if err != nil {
		// Missing file is fine, it will be created.
		values = map[string]string{}
	}
	values[envAccessToken] = cred.AccessToken
	values[envRefreshToken] = cred.RefreshToken
	if cred.ClientID != "" {
		values[envClientID] = cred.ClientID
	}
	if cred.ClientSecret != "" {
		values[envClientSecret] = cred.ClientSecret
	}
	if err := godotenv.Write(values, s.path); err != nil {
		return fmt.Errorf("writing credential file %s: %w", s.path, err)
	}
	return nil
}
