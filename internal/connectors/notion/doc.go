// Package notion provides a typed client for the Notion REST API.
//
// # Client
//
// New builds a Client from a Config. The client exposes one service per
// resource family:
//
//	c.Pages      pages and page properties
//	c.Databases  database schema and queries
//	c.Blocks     block content and children
//	c.Search     workspace search
//	c.Users      workspace users and the bot user
//	c.Comments   page and block comments
//
// Every request carries the Notion-Version header and a bearer token.
// Listing methods return one page of results; the *All variants follow
// next_cursor until has_more is false.
//
// # Typed payloads
//
// Blocks and property values are decoded into per-type Go values
// (Block.Data, PropertyValue.Data). Unknown types keep their raw JSON so
// that newer API objects still round-trip.
//
// # Bulk updates
//
// BulkUpdate resolves target pages from explicit IDs or from a database
// and a filter expression, then patches them in fixed-size concurrent
// batches. Individual failures are collected in the BulkResult instead of
// aborting the run.
//
// Filter expressions use a small grammar:
//
//	Status = Done AND (Priority >= 2 OR Owner is not empty)
//
// See ParseFilter for the full syntax.
package notion
