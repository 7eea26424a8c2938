package version

// Version is the current release version. Overridden at build time via
// -ldflags "-X github.com/AppleLamps/x-wrapped/internal/version.Version=...".
var Version = "0.1.0"
