package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/reelgate/reelgate/internal/store"
)

// commandContext resolves the shared command inputs lazily: flags win over
// environment variables, and the cache directory falls back to the user
// cache dir.
type commandContext struct {
	baseURLFlag  *string
	tokenFlag    *string
	cacheDirFlag *string
}

func newCommandContext(baseURL, token, cacheDir *string) *commandContext {
	return &commandContext{
		baseURLFlag:  baseURL,
		tokenFlag:    token,
		cacheDirFlag: cacheDir,
	}
}

func (c *commandContext) client() (*proxyClient, error) {
	baseURL := *c.baseURLFlag
	if baseURL == "" {
		baseURL = os.Getenv("REELGATE_URL")
	}
	if baseURL == "" {
		return nil, errors.New("mediator URL required: set --base-url or REELGATE_URL")
	}

	token := *c.tokenFlag
	if token == "" {
		token = os.Getenv("REELGATE_TOKEN")
	}
	if token == "" {
		return nil, errors.New("proxy token required: set --token or REELGATE_TOKEN")
	}

	return newProxyClient(baseURL, token), nil
}

func (c *commandContext) cacheDir() (string, error) {
	if *c.cacheDirFlag != "" {
		return *c.cacheDirFlag, nil
	}
	if dir := os.Getenv("REELGATE_CACHE_DIR"); dir != "" {
		return dir, nil
	}

	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "reelgate"), nil
}

func (c *commandContext) store() (*store.Store, error) {
	dir, err := c.cacheDir()
	if err != nil {
		return nil, err
	}
	return store.New(dir)
}
