package pepdb

// Version is the release version, overridden at link time by the build.
var Version = "0.1.0-dev"
