// Package industry holds what the industry handlers share: handler options
// and the struct-tag validator used to build per-record error lists.
//
// The handlers themselves live in the banking, ecommerce and healthcare
// subpackages.
package industry
