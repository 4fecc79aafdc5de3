package version

// Version is overridden at build time with -ldflags "-X github.com/Daskott/safepoint/version.Version=..."
var Version = "0.1.0"
