package shipway

// Version is the release version, overridden at build time via
// -ldflags "-X github.com/shipwaylabs/shipway.Version=v1.2.3".
var Version = "dev"
