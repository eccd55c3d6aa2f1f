// Package provision brings a Linux host from an unknown prior state to
// a known one: a service group and user exist and are linked, the
// deployment directory exists under /opt and is symlinked into the
// user's home with correct ownership, the user has an RSA key pair and
// a populated authorized_keys file, and sshd listens on a non-default
// port.
//
// Every step tolerates a host that is partially or fully provisioned
// already: each checks for "already in desired state" before mutating,
// reports a warning on that path, and continues. Re-running after an
// interrupted run is the recovery strategy; there is no rollback.
//
// The one deliberately configurable exception is the authorized_keys
// append, which duplicates the key on re-runs under the default
// AppendAlways policy. Use AppendIfAbsent for content-level idempotence.
//
// Concurrent invocations against the same host are unsupported: the
// existence-check-then-act sequences for group, user, symlink, and
// authorized_keys are not atomic. One operator, one host, one run at a
// time.
package provision
