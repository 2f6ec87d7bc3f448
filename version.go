package sqlitewasi

// Export contract version information.
const (
	// ABIVersion is the version of the export contract in this package.
	// It changes whenever an export is added, removed or changes signature.
	ABIVersion = 1

	// SQLiteVersion is the upstream SQLite release the contract targets.
	SQLiteVersion = "3.46.0"
)
