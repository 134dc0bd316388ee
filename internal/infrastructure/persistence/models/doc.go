// Package models holds the GORM row types for the origination tables and
// their mappings to the domain aggregates. Domain types carry no ORM tags.
//
// Time columns carry no explicit type so that the same models work against
// PostgreSQL (timestamptz, created by migrations/) and SQLite in tests.
package models
