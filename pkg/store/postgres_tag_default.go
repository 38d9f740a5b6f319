//go:build !integration

package store

// integrationTagSet is false unless the package was built with
// -tags=integration; see postgres_tag_integration.go.
const integrationTagSet = false
