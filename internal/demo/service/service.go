// Package service holds the business services behind the demo endpoints.
package service

import (
	"strings"

	"minimvc/internal/meta"
)

// MyService looks up a value by name
type MyService interface {
	GetByName(name string) string
}

type myServiceImpl struct{}

// GetByName implements MyService
func (*myServiceImpl) GetByName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "nobody"
	}
	return "hello " + name
}

// Calculator is registered under an explicit bean name.
type Calculator struct{}

// Add returns a+b
func (*Calculator) Add(a, b int) int {
	return a + b
}

// Register records the services of this package.
func Register(c *meta.Catalog) error {
	return c.Register(
		meta.Describe[myServiceImpl](meta.AsService(""), meta.Implements[MyService]()),
		meta.Describe[Calculator](meta.AsService("calculator")),
	)
}
