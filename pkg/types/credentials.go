// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for paideia: configuration,
// service credentials, and ingestion job records.
package types

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials reports that the Mathpix app id or app key is empty.
var ErrMissingCredentials = errors.New("MATHPIX_APP_ID and MATHPIX_APP_KEY must be set")

// Credentials identify the caller to the Mathpix API. They are passed
// explicitly into the ingestion procedure and never persisted.
type Credentials struct {
	AppID  string `json:"-" yaml:"-"`
	AppKey string `json:"-" yaml:"-"`
}

// Validate returns ErrMissingCredentials when either secret is empty.
func (c Credentials) Validate() error {
	var missing []string
	if c.AppID == "" {
		missing = append(missing, "app id")
	}
	if c.AppKey == "" {
		missing = append(missing, "app key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w (missing %v)", ErrMissingCredentials, missing)
	}
	return nil
}

// String redacts the key so credentials are safe to print.
func (c Credentials) String() string {
	key := ""
	if c.AppKey != "" {
		key = "****"
	}
	return fmt.Sprintf("Credentials{AppID: %q, AppKey: %q}", c.AppID, key)
}
