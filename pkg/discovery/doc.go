// Package discovery derives the server side of the wiring graph: API
// routes from the directory layout beneath the API root, and serverless
// functions from the functions directories. Handler files are scanned
// lexically for methods, storage tables, external endpoints and story tags.
package discovery
