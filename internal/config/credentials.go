package config

import (
	"fmt"
	"strings"
)

// MissingCredentialError is returned before any external call is made when a
// platform credential is not configured.
type MissingCredentialError struct {
	Env     string
	Purpose string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s is not set (required for %s); export it or add it to .env", e.Env, e.Purpose)
}

// RequireKey returns value, or a MissingCredentialError naming the
// environment variable behind key when value is blank.
func RequireKey(key, value, purpose string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", &MissingCredentialError{Env: CredentialEnv(key), Purpose: purpose}
	}
	return value, nil
}

// GeminiKey returns the Gemini API key or a MissingCredentialError.
func (c *Config) GeminiKey() (string, error) {
	return RequireKey("gemini.apiKey", c.Gemini.APIKey, "the gemini backend")
}

// YouTubeKey returns the Google API key used for YouTube and Translate.
func (c *Config) YouTubeKey(purpose string) (string, error) {
	return RequireKey("youtube.apiKey", c.YouTube.APIKey, purpose)
}

// ChatKey returns the API key of a chat backend.
func (c *Config) ChatKey(backend string) (string, error) {
	name := strings.ToLower(backend)
	chat, ok := c.Chat(name)
	if !ok {
		return "", fmt.Errorf("unknown chat backend %q", backend)
	}
	return RequireKey(name+".apiKey", chat.APIKey, "the "+name+" backend")
}
