//go:build integration

package store

// integrationTagSet is true when the package was built with -tags=integration,
// one of the two gates postgres_test.go checks before exercising the
// real Postgres-backed Store (the other is the PROXIMA_TEST_DB env var).
const integrationTagSet = true
