// Package services implements the driving ports on top of the driven ones:
// profile and credential resolution, the connector registry, settings, and
// the Google Drive catalog, sync, download and watch workflows.
package services
