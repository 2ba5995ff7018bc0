// Package demo is the reference application served by cmd/server.
package demo

import (
	"minimvc/internal/demo/controller"
	"minimvc/internal/demo/service"
	"minimvc/internal/meta"
)

// Package is the scan root of the demo classes
const Package = "minimvc/internal/demo"

// Register records every demo class in c.
func Register(c *meta.Catalog) error {
	for _, register := range []func(*meta.Catalog) error{
		service.Register,
		controller.Register,
	} {
		if err := register(c); err != nil {
			return err
		}
	}
	return nil
}
