// Package controller holds the demo request handlers.
package controller

import (
	"fmt"
	"io"
	"net/http"

	"minimvc/internal/demo/service"
	"minimvc/internal/meta"
)

// MyController serves /my/query and /my/add.
type MyController struct {
	myService  service.MyService   `autowired:""`
	calculator *service.Calculator `autowired:"calculator"`
}

// Query writes the service result for name.
func (c *MyController) Query(w http.ResponseWriter, r *http.Request, name string) {
	_, _ = io.WriteString(w, c.myService.GetByName(name))
}

// Add writes the sum of a and b. The numeric parameters are only bound when
// numeric binding is enabled.
func (c *MyController) Add(w http.ResponseWriter, r *http.Request, a, b int) {
	fmt.Fprintf(w, "%d + %d = %d", a, b, c.calculator.Add(a, b))
}

// Register records the controllers of this package.
func Register(c *meta.Catalog) error {
	return c.Register(
		meta.Describe[MyController](
			meta.AsController(),
			meta.RequestMapping("/my"),
			meta.Handle("/query", "Query", "", "", "name"),
			meta.Handle("/add", "Add", "", "", "a", "b"),
		),
	)
}
