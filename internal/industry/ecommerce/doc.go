// Package ecommerce processes product catalogs and order histories and derives
// inventory alerts.
//
// Catalogs are finite and go through the chunk engine. Order histories may be
// unbounded, so they are consumed page by page from a paginated repository and
// only running totals are kept.
package ecommerce
