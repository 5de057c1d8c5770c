// Package secret resolves credential material referenced from
// configuration, so access tokens and client secrets never live in
// config files directly.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider + Registry)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:env:ADS_ACCESS_TOKEN
//   - Inline use:  Bearer secretref:env:ADS_ACCESS_TOKEN
package secret
