package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           chartd API
// @version         1.0
// @description     HTTP API for patient records served by MVC controllers.
//
// @contact.name   chartd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
