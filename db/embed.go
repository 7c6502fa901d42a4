// Package db provides the embedded relational schema for the checkout store.
package db

import _ "embed"

// Schema contains the DDL statements for baskets, catalogue, inventory,
// delivery methods, wallets, coupons and the relational order fallback.
//
//go:embed migrations/001_schema.sql
var Schema string
