// Package layers provides the built-in computation units. Each layer
// registers its builder with the runtime registry under its operator type
// tag; importing the package is enough to make them available.
package layers
