// Package binding holds the persisted association between a workspace and a
// project on a quality server, plus the stores that read and write it.
package binding

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/grovetools/qualitylink/errors"
)

// AuthMethod identifies how a connection authenticates against the server.
type AuthMethod string

const (
	AuthAnonymous AuthMethod = "anonymous"
	AuthBasic     AuthMethod = "basic"
	AuthToken     AuthMethod = "token"
)

// Credentials are the optional persisted credentials of a binding.
type Credentials struct {
	Type     AuthMethod `yaml:"type" toml:"type" json:"type" jsonschema:"enum=basic,enum=token,description=Authentication scheme"`
	UserName string     `yaml:"userName,omitempty" toml:"userName,omitempty" json:"userName,omitempty" jsonschema:"description=User name for basic authentication"`
	Secret   string     `yaml:"secret,omitempty" toml:"secret,omitempty" json:"secret,omitempty" jsonschema:"description=Password or token; ${VAR} references are expanded"`
}

// BoundProject is the persisted binding record for a workspace.
// It is treated as immutable once read.
type BoundProject struct {
	ProjectKey  string       `yaml:"projectKey" toml:"projectKey" json:"projectKey" jsonschema:"required,minLength=1,description=Key of the bound server project"`
	ProjectName string       `yaml:"projectName,omitempty" toml:"projectName,omitempty" json:"projectName,omitempty" jsonschema:"description=Display name of the bound project"`
	ServerURI   string       `yaml:"serverUri" toml:"serverUri" json:"serverUri" jsonschema:"required,minLength=1,description=Base URI of the quality server"`
	Credentials *Credentials `yaml:"credentials,omitempty" toml:"credentials,omitempty" json:"credentials,omitempty" jsonschema:"description=Optional credentials; absent means anonymous"`
}

// Validate checks that the record carries a project key and a usable server URI.
func (b *BoundProject) Validate() error {
	if strings.TrimSpace(b.ProjectKey) == "" {
		return fmt.Errorf("projectKey is required")
	}
	if _, err := parseServerURI(b.ServerURI); err != nil {
		return err
	}
	if b.Credentials != nil {
		switch b.Credentials.Type {
		case AuthBasic, AuthToken:
		default:
			return fmt.Errorf("unsupported credentials type '%s'", b.Credentials.Type)
		}
	}
	return nil
}

// ServerURL parses ServerURI.
func (b *BoundProject) ServerURL() (*url.URL, error) {
	return parseServerURI(b.ServerURI)
}

// ConnectionParameters rebuilds the connection information from the record.
// Absent credentials yield an anonymous connection.
func (b *BoundProject) ConnectionParameters() (ConnectionParameters, error) {
	uri, err := b.ServerURL()
	if err != nil {
		return ConnectionParameters{}, err
	}
	if b.Credentials == nil {
		return Anonymous(uri), nil
	}
	return b.Credentials.ConnectionParameters(uri), nil
}

// Authentication is the credential part of ConnectionParameters.
type Authentication struct {
	Method   AuthMethod
	UserName string
	Secret   string
}

// String never prints the secret.
func (a Authentication) String() string {
	switch a.Method {
	case AuthBasic:
		return fmt.Sprintf("basic(%s)", a.UserName)
	case AuthToken:
		return "token(***)"
	default:
		return string(AuthAnonymous)
	}
}

// ConnectionParameters describe how to reach the quality server.
// They are rebuilt on every reconciliation and never persisted.
type ConnectionParameters struct {
	ServerURI *url.URL
	Auth      Authentication
}

// Anonymous returns parameters for an unauthenticated connection.
func Anonymous(uri *url.URL) ConnectionParameters {
	return ConnectionParameters{
		ServerURI: uri,
		Auth:      Authentication{Method: AuthAnonymous},
	}
}

// ConnectionParameters combines the credentials with a server URI.
func (c *Credentials) ConnectionParameters(uri *url.URL) ConnectionParameters {
	return ConnectionParameters{
		ServerURI: uri,
		Auth: Authentication{
			Method:   c.Type,
			UserName: c.UserName,
			Secret:   c.Secret,
		},
	}
}

// IsAnonymous reports whether no credentials are attached.
func (p ConnectionParameters) IsAnonymous() bool {
	return p.Auth.Method == "" || p.Auth.Method == AuthAnonymous
}

// Validate checks that the server URI is an absolute http(s) URI.
func (p ConnectionParameters) Validate() error {
	if p.ServerURI == nil {
		return errors.InvalidArgument("serverUri")
	}
	if _, err := parseServerURI(p.ServerURI.String()); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidArgument, "invalid server URI")
	}
	return nil
}

func parseServerURI(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("serverUri is required")
	}
	uri, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("serverUri is not a valid URI: %w", err)
	}
	if uri.Scheme != "http" && uri.Scheme != "https" {
		return nil, fmt.Errorf("serverUri must use http or https, got '%s'", raw)
	}
	if uri.Host == "" {
		return nil, fmt.Errorf("serverUri must be absolute, got '%s'", raw)
	}
	return uri, nil
}
