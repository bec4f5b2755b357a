package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const bearerPrefix = "bearer "

// Credentials authenticate requests to both APIs
type Credentials struct {
	AccessToken string
	SpaceGUID   string
}

// cfConfig is the subset of the cf CLI config.json groupctl reads
type cfConfig struct {
	AccessToken string `json:"AccessToken"`
	SpaceFields struct {
		GUID string `json:"Guid"`
	} `json:"SpaceFields"`
}

// DefaultCredentialsPath returns $HOME/.cf/config.json
func DefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	return filepath.Join(home, ".cf", "config.json")
}

// LoadCredentials reads the access token and target space from a cf CLI
// config file
func LoadCredentials(path string) (Credentials, error) {
	if path == "" {
		path = DefaultCredentialsPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var cfg cfConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}

	if cfg.AccessToken == "" {
		return Credentials{}, fmt.Errorf("no access token in %s; log in with the cf CLI first", path)
	}
	if cfg.SpaceFields.GUID == "" {
		return Credentials{}, fmt.Errorf("no target space in %s; select one with 'cf target -s'", path)
	}

	return Credentials{
		AccessToken: cfg.AccessToken,
		SpaceGUID:   cfg.SpaceFields.GUID,
	}, nil
}

// RawToken returns the token without a leading "bearer " as the groups API
// expects in X-Auth-Token
func (c Credentials) RawToken() string {
	if strings.HasPrefix(strings.ToLower(c.AccessToken), bearerPrefix) {
		return c.AccessToken[len(bearerPrefix):]
	}
	return c.AccessToken
}

// BearerToken returns the token in Authorization header form
func (c Credentials) BearerToken() string {
	return "bearer " + c.RawToken()
}
