// Package tokensource supplies upstream credentials as an oauth2.TokenSource.
//
// A credential (an API key or a bearer token) lives in a Store:
//
//   - EnvStore reads it from an environment variable and is read-only
//   - FileStore keeps it in a file readable only by the current user
//   - KeyringStore keeps it in the OS keyring
//
// New wraps a Store so that transports can consume it:
//
//	ts := tokensource.New(tokensource.NewKeyringStore("claudine", "upstream"))
//	transport := &oauth2.Transport{Source: ts, Base: http.DefaultTransport}
//
// The stored value is cached for a short time, so a credential rotated with
// "claudine auth login" is picked up without restarting the gateway.
//
// Writing an empty string clears the stored credential.
package tokensource
