package shared

import (
	"bufio"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

var (
	upScript   = regexp.MustCompile(`^([0-9]{3})_up\.sql$`)
	downScript = regexp.MustCompile(`^([0-9]{3})_down\.sql$`)
)

// MigrationSource returns the migration script filesystem for the given directory.
// An empty dir selects the embedded default migration set.
func MigrationSource(dir string) (fs.FS, error) {
	if dir == "" {
		sub, err := fs.Sub(embeddedMigrations, "sql")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
		}
		return sub, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidArgument, dir)
	}

	return os.DirFS(dir), nil
}

// SchemaVersion reads the current schema version from the database's user_version pragma.
func SchemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// loadScripts scans fsys for migration scripts and returns filename maps keyed
// by sequence number, plus the highest upgrade sequence found.
func loadScripts(fsys fs.FS) (ups, downs map[int]string, maxSeq int, err error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to read migration directory: %w", err)
	}

	ups = make(map[int]string)
	downs = make(map[int]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if m := upScript.FindStringSubmatch(name); m != nil {
			seq, _ := strconv.Atoi(m[1])
			ups[seq] = name
			if seq > maxSeq {
				maxSeq = seq
			}
		} else if m := downScript.FindStringSubmatch(name); m != nil {
			seq, _ := strconv.Atoi(m[1])
			downs[seq] = name
		}
	}

	return ups, downs, maxSeq, nil
}

// readStatements parses a migration script into individual SQL statements.
//
// Statements are accumulated line by line until a trailing semicolon. Blank
// lines and lines starting with "--" are skipped. A trailing statement
// without a terminator is still returned, so scripts missing a final
// newline or semicolon execute completely.
func readStatements(fsys fs.FS, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration script %s: %w", name, err)
	}
	defer f.Close()

	var statements []string
	var pending strings.Builder

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		pending.WriteString(line)
		pending.WriteString(" ")

		if strings.HasSuffix(line, ";") {
			statements = append(statements, pending.String())
			pending.Reset()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read migration script %s: %w", name, err)
	}

	if strings.TrimSpace(pending.String()) != "" {
		statements = append(statements, pending.String())
	}

	return statements, nil
}

// Upgrade applies all pending upgrade scripts from fsys in ascending sequence
// order and returns the sequence numbers applied.
//
// The schema version is bumped after each script and everything commits in a
// single transaction, so a failing script leaves the database at the version
// it had before the call. A missing intermediate script aborts with
// [ErrMigrationGap] naming the expected sequence number.
func Upgrade(db *sql.DB, fsys fs.FS) ([]int, error) {
	ups, _, maxSeq, err := loadScripts(fsys)
	if err != nil {
		return nil, err
	}

	version, err := SchemaVersion(db)
	if err != nil {
		return nil, err
	}

	if version >= maxSeq {
		return nil, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var applied []int
	for next := version + 1; next <= maxSeq; next++ {
		name, ok := ups[next]
		if !ok {
			return nil, fmt.Errorf("%w: expected %03d_up.sql", ErrMigrationGap, next)
		}

		statements, err := readStatements(fsys, name)
		if err != nil {
			return nil, err
		}

		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMigrationFailed, name, err)
			}
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", next)); err != nil {
			return nil, fmt.Errorf("%w: failed to bump schema version to %d: %v", ErrMigrationFailed, next, err)
		}

		applied = append(applied, next)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit migrations: %w", err)
	}

	return applied, nil
}

// Rollback applies downgrade scripts in descending order until the schema
// version equals target, returning the sequence numbers rolled back.
//
// The target must be non-negative and strictly below the current version.
// All required down scripts are located before any of them run, so a
// missing script cannot leave a half-completed rollback.
func Rollback(db *sql.DB, fsys fs.FS, target int) ([]int, error) {
	version, err := SchemaVersion(db)
	if err != nil {
		return nil, err
	}

	if target < 0 {
		return nil, fmt.Errorf("%w: target version %d is negative", ErrInvalidTarget, target)
	}
	if target >= version {
		return nil, fmt.Errorf("%w: target version %d is not below current version %d", ErrInvalidTarget, target, version)
	}

	_, downs, _, err := loadScripts(fsys)
	if err != nil {
		return nil, err
	}

	for seq := version; seq > target; seq-- {
		if _, ok := downs[seq]; !ok {
			return nil, fmt.Errorf("%w: expected %03d_down.sql", ErrMigrationGap, seq)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rolledBack []int
	for seq := version; seq > target; seq-- {
		statements, err := readStatements(fsys, downs[seq])
		if err != nil {
			return nil, err
		}

		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMigrationFailed, downs[seq], err)
			}
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", seq-1)); err != nil {
			return nil, fmt.Errorf("%w: failed to lower schema version to %d: %v", ErrMigrationFailed, seq-1, err)
		}

		rolledBack = append(rolledBack, seq)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rollback: %w", err)
	}

	return rolledBack, nil
}
