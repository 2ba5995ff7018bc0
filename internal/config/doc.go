// Package config loads the bootstrap configuration of a minimvc application.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//	1. Default values (Default)
//	2. The YAML bootstrap resource
//	3. Environment variables (MVC_*)
//
// The resource location is the init parameter of the application: the
// -config flag of cmd/server, or MVC_CONFIG_LOCATION. Without either, the
// loader tries config.yaml and configs/config.yaml and silently continues
// when neither exists. A resource that was named explicitly must exist.
//
// # Bootstrap Resource
//
//	framework:
//	  scanPackage: minimvc/internal/demo   # required
//	  contextPath: /app
//	  strict: false
//	  paramBinding: legacy                  # legacy | named
//	  numericParams: false
//	server:
//	  port: 8080
//	  adminPrefix: /_mvc
//
// # Environment Variables
//
// Every key has an override built from its section and field name:
//
//	MVC_FRAMEWORK_SCAN_PACKAGE=minimvc/internal/demo
//	MVC_FRAMEWORK_PARAM_BINDING=named
//	MVC_SERVER_PORT=9090
//	MVC_LOGGING_LEVEL=debug
//
// # Validation
//
// Load validates the merged result with go-playground/validator struct tags
// and reports the first violation as a configuration error.
package config
