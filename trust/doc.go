// Package trust manages the deploying machine's SSH trust material: the
// private key used to authenticate and the known_hosts store consulted when
// dialing deployment targets.
//
// Both operations are idempotent and append-only. An existing key file is
// never replaced, even when different material is supplied, and a host that
// already has a fingerprint in the store (plain or hashed form) is never
// probed again.
//
// Usage:
//
//	if err := trust.EnsureKey(keyPath, material); err != nil {
//		return err
//	}
//
//	store := trust.NewStore(trust.DefaultStorePath())
//
//	report, err := store.Ensure(ctx, trust.SplitHostList("app1.example.com,app2.example.com"))
package trust
