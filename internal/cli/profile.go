package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Profile remembers which server cdx talks to between runs.
type Profile struct {
	APIBaseURL string `json:"api_base_url"`
	APIToken   string `json:"api_token,omitempty"`
}

var profileDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cdx"), nil
}

func profilePath() (string, error) {
	dir, err := profileDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

func SaveProfile(p Profile) error {
	path, err := profilePath()
	if err != nil {
		return err
	}
	p.APIBaseURL = strings.TrimRight(strings.TrimSpace(p.APIBaseURL), "/")
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}

// LoadProfile returns the zero Profile when none has been saved.
func LoadProfile() (Profile, error) {
	path, err := profilePath()
	if err != nil {
		return Profile{}, err
	}
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func ClearProfile() error {
	path, err := profilePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return os.Remove(path)
}
