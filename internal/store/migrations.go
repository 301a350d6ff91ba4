package store

// Each entry is one schema version; statements run in a single transaction.
var sqliteMigrations = [][]string{
	{
		`CREATE TABLE files (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			size INTEGER NOT NULL,
			pages TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE signature_fields (
			file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			page INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			width REAL NOT NULL,
			height REAL NOT NULL,
			required INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (file_id, id)
		)`,
		`CREATE TABLE signatures (
			id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			signer_name TEXT NOT NULL,
			signature_count INTEGER NOT NULL,
			digest TEXT NOT NULL,
			path TEXT NOT NULL,
			signed_at TEXT NOT NULL
		)`,
		`CREATE INDEX idx_signatures_file_id ON signatures(file_id, signed_at DESC)`,
	},
}

var postgresMigrations = [][]string{
	{
		`CREATE TABLE files (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			size BIGINT NOT NULL,
			pages JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE signature_fields (
			file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			id TEXT NOT NULL,
			position INTEGER NOT NULL,
			page INTEGER NOT NULL,
			x DOUBLE PRECISION NOT NULL,
			y DOUBLE PRECISION NOT NULL,
			width DOUBLE PRECISION NOT NULL,
			height DOUBLE PRECISION NOT NULL,
			required BOOLEAN NOT NULL DEFAULT false,
			PRIMARY KEY (file_id, id)
		)`,
		`CREATE TABLE signatures (
			id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			signer_name TEXT NOT NULL,
			signature_count INTEGER NOT NULL,
			digest TEXT NOT NULL,
			path TEXT NOT NULL,
			signed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX idx_signatures_file_id ON signatures(file_id, signed_at DESC)`,
	},
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`
