// Package meta holds the declarative metadata the framework works from.
//
// Go cannot discover types at runtime, so every managed class is recorded
// explicitly in a Catalog by a bootstrap routine of the package that owns it:
//
//	func Register(c *meta.Catalog) error {
//		return c.Register(
//			meta.Describe[MyController](
//				meta.AsController(),
//				meta.RequestMapping("my"),
//				meta.Handle("/query", "Query", "", "", "name"),
//			),
//		)
//	}
//
// A class is identified by its fully-qualified name, the import path of its
// package followed by a dot and the type name. The Scanner walks the package
// tree recorded in the catalog the way a classpath scan walks directories.
//
// Managed fields are marked with the struct tag `autowired:""`; a non-empty
// tag value names the bean to inject.
package meta
