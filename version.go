package weaver

// Version is the weaver release, recorded in generated maps
const Version = "0.4.0"
