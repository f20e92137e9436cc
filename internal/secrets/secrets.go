// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: mathpix-app-id, mathpix-app-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/paideia/paideia/pkg/types"
)

const (
	// KeyMathpixAppID is the secret file holding the Mathpix application id.
	KeyMathpixAppID = "mathpix-app-id"
	// KeyMathpixAppKey is the secret file holding the Mathpix application key.
	KeyMathpixAppKey = "mathpix-app-key"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Credentials fills any empty field of explicit from the loaded secret files.
// Values supplied by flags or the environment take precedence over files.
// The result is not validated; callers pass it to the ingestion procedure,
// which rejects incomplete credentials.
func Credentials(explicit types.Credentials, files map[string]string) types.Credentials {
	creds := types.Credentials{
		AppID:  strings.TrimSpace(explicit.AppID),
		AppKey: strings.TrimSpace(explicit.AppKey),
	}
	if creds.AppID == "" {
		creds.AppID = files[KeyMathpixAppID]
	}
	if creds.AppKey == "" {
		creds.AppKey = files[KeyMathpixAppKey]
	}
	return creds
}
