// Package db provides the embedded order store schema.
package db

import _ "embed"

// Schema creates the orders and order_items tables when missing.
//
//go:embed migrations/001_schema.sql
var Schema string
