package history

import "fmt"

func (s *Store) migrate() error {
	const createMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := s.db.Exec(createMigrationsTableSQL); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	var currentVersion int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("reading current schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{
			version: 1,
			sql: `
				CREATE TABLE repo_runs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					repo TEXT NOT NULL,
					started_at DATETIME NOT NULL,
					ended_at DATETIME,
					network INTEGER DEFAULT 0,
					local_copied INTEGER DEFAULT 0,
					corrupted INTEGER DEFAULT 0,
					failed INTEGER DEFAULT 0,
					skipped INTEGER DEFAULT 0,
					metadata_regenerated BOOLEAN DEFAULT 0,
					error_message TEXT
				);
			`,
		},
	}

	for _, mig := range migrations {
		if mig.version > currentVersion {
			s.logger.Info("running history migration", "version", mig.version)
			if err := s.runMigration(mig.version, mig.sql); err != nil {
				return fmt.Errorf("running migration %d: %w", mig.version, err)
			}
		}
	}
	return nil
}

func (s *Store) runMigration(version int, sql string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sql); err != nil {
		return fmt.Errorf("executing migration sql: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit()
}
