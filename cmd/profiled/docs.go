package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           profiled API
// @version         1.0
// @description     HTTP API for switching the active inference workload profile on a GPU host.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
