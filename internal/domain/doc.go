// Package domain defines the plain types, error taxonomy and contracts shared by
// the delegation session components. It has no behaviour beyond small helpers.
package domain
