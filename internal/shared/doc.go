// Package shared holds code used across packages that belongs to no single
// layer.
//
// The testutil subpackage captures slog output so tests can assert on what
// a component logged:
//
//	logger, logs := testutil.NewTestLogger(t)
//	d := dispatch.New(reg, table, dispatch.Options{Logger: logger})
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelError, "dispatch failed")
//
// It must not import other internal packages.
package shared
