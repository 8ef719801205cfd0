// Package migrations は goose 用のSQLマイグレーションを埋め込みます。
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
