package canopy

// Version is the Canopy release, overridden at build time with
// -ldflags "-X github.com/aretw0/canopy.Version=...".
var Version = "0.1.0-dev"
