// Package migration はSQLiteデータベースのスキーマを埋め込みSQLファイルから構築する。
//
// ファイル名は 000001_description.up.sql の形式とし、schema_migrations テーブルで
// 適用済みバージョンを記録する。各ファイルはバージョン記録と同じトランザクションで適用される。
package migration

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
)

const upSuffix = ".up.sql"

// Migration は1つのマイグレーションファイル。
type Migration struct {
	// Version はファイル名先頭の連番。
	Version int
	// Name はバージョンに続く説明部分。
	Name string
	// path はfsys内のファイルパス。
	path string
}

// Run は未適用のマイグレーションをバージョン順に適用し、今回適用したバージョンを返す。
// 同じバージョンのファイルが複数ある場合は何も適用せずにエラーを返す。
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, logger *slog.Logger) ([]int, error) {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return nil, fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}

	migrations, err := Collect(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイルの収集に失敗: %w", err)
	}

	var done []int
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := apply(ctx, db, fsys, m); err != nil {
			return done, fmt.Errorf("マイグレーション %06d_%s の適用に失敗: %w", m.Version, m.Name, err)
		}
		logger.InfoContext(ctx, "マイグレーションを適用",
			slog.Int("version", m.Version),
			slog.String("name", m.Name),
		)
		done = append(done, m.Version)
	}
	return done, nil
}

// Collect はdir直下のup.sqlファイルをバージョン順に並べて返す。
// 命名規則に合わないファイルは無視する。
func Collect(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), upSuffix) {
			continue
		}
		prefix, rest, found := strings.Cut(entry.Name(), "_")
		if !found {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(rest, upSuffix),
			path:    path.Join(dir, entry.Name()),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, fmt.Errorf("バージョン %06d が重複しています", migrations[i].Version)
		}
	}
	return migrations, nil
}

// ensureMigrationsTable はバージョン管理テーブルを作成する。
func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

// appliedVersions は適用済みのバージョン集合を返す。
func appliedVersions(ctx context.Context, db *sql.DB) (map[int]struct{}, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]struct{})
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = struct{}{}
	}
	return applied, rows.Err()
}

// apply は1つのマイグレーションをトランザクション内で適用する。
func apply(ctx context.Context, db *sql.DB, fsys fs.FS, m Migration) error {
	content, err := fs.ReadFile(fsys, m.path)
	if err != nil {
		return fmt.Errorf("ファイル読み込みに失敗: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("SQL実行に失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
		return fmt.Errorf("バージョン記録に失敗: %w", err)
	}
	return tx.Commit()
}
