// Package store persists one record per detection call and lists the most
// recent ones.
//
// Two backends are provided. FileStore writes each record as an indented JSON
// document named {filename}_{strategy}_{unix seconds}.json in a log
// directory, which keeps the log readable with ordinary tools. SQLiteStore
// keeps the same fields in a single table. MultiStore fans a record out to
// several backends and reads back from the first.
package store
