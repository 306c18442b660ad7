package domain

// KeyPrefix namespaces every Redis key written by this service.
// main overrides it from storage config before any repository is constructed.
var KeyPrefix = "mr:"
