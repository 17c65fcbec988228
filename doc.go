// Package goenviron provides an ordered, case-insensitive environment
// variable overlay with merge semantics and remote snapshot retrieval.
//
// GoEnviron models the environment a build or agent process runs with:
// a mutable overlay of NAME=VALUE pairs where names compare ASCII
// case-insensitively but keep the casing they were first written with.
// Overrides compose: plain keys replace, empty values delete, and keys
// of the form NAME+SUFFIX prepend to path-list variables using the
// platform separator.
//
// # Key Features
//
//   - Ordered, case-insensitive overlay with deterministic iteration
//   - Override merge semantics for PATH-like variables
//   - One-time host environment snapshot
//   - Remote snapshot retrieval with rate limiting and circuit breaking
//   - YAML profiles for named override sets
//   - OpenTelemetry integration and audit logging
//
// # Basic Usage
//
//	env := goenviron.FromHost()
//	env.Override("JAVA_HOME", "/opt/jdk17")
//	env.Override("PATH+maven", "/opt/maven/bin")
//
//	cmd.Env = env.Environ()
//
// # Remote Snapshots
//
//	fetcher, _ := goenviron.NewBuilder().
//	    WithDefaultTimeout(30 * time.Second).
//	    Build()
//	defer fetcher.Shutdown(context.Background())
//
//	snap, err := fetcher.Fetch(ctx, agent)
//
// # File I/O
//
// All file operations use github.com/victoralfred/gowritter/safepath
// for secure path handling. Direct use of os.ReadFile, os.WriteFile,
// os.Open, os.Create, or io/ioutil is prohibited within this library.
//
// # Package Structure
//
//   - goenviron: Main entry point and convenience functions
//   - overlay: Core overlay type and host snapshot
//   - remote: Snapshot retrieval from peers
//   - profile: YAML profile loading
//   - validation: Overlay validation and filtering
//   - pool: Bounded worker pool with backpressure
//   - resilience: Rate limiting and circuit breaker
//   - observability: OpenTelemetry metrics and audit logging
//   - hooks: Extension points for custom behavior
//   - config: Configuration management
package goenviron
