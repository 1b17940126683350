// Package preflight provides readiness checks for the filesystem paths,
// store, and external hook that patchtrack depends on.
//
// These checks run in two contexts:
//   - Watch mode runs RunAll before its loop starts and refuses to run
//     when a check fails, so the daemon never spins on an environment
//     that cannot reconcile.
//   - The CLI "patchtrack status" command renders every Result to show
//     why a host is or is not ready.
package preflight
