// Package auth defines the credential collaborator consumed by the
// request pipeline.
//
// Token acquisition and refresh live outside this module; the pipeline
// only needs two things from a credential source, captured by Provider:
// fresh request headers before every call, and a validity check for
// health reporting. A failure from either is terminal for that call -
// the pipeline never retries an authentication problem.
//
// Static covers the common case of pre-provisioned Amazon Advertising
// credentials (LWA client id + access token + profile scope). TokenFunc
// adapts an external token source. ExpiryGuard wraps any Provider and
// rejects JWT access tokens whose exp claim has already passed, so an
// obviously stale token fails fast instead of burning a round trip on a
// guaranteed 401.
package auth
