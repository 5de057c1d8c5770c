// Package config loads the request core configuration from YAML files
// and AMZCORE_-prefixed environment variables, resolving credential
// references through the secret package before handing the result to
// callers.
package config
