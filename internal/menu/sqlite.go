package menu

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/menum/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// menuColumns はSELECT・RETURNINGで取得する列。
const menuColumns = "id, owner_id, name, status"

// SQLiteRepository はSQLiteに保存する Repository 実装。
type SQLiteRepository struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteDSN はファイルパスからWALモードと待機時間を設定した接続文字列を作る。
func SQLiteDSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// OpenSQLite はデータベースを開き、マイグレーションを適用したリポジトリを返す。
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// 書き込みを直列化し、インメモリDBでも同じ接続を使い続ける
	db.SetMaxOpenConns(1)

	if _, err := migration.Run(ctx, db, migrationsFS, "migrations", logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Seed はmenusを挿入する。既に存在するIDは変更しない。
func (r *SQLiteRepository) Seed(ctx context.Context, menus ...Menu) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, m := range menus {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO menus (id, owner_id, name, status) VALUES (?, ?, ?, ?)",
			m.ID, m.OwnerID, m.Name, string(m.Status),
		); err != nil {
			return fmt.Errorf("シードデータ %s の投入に失敗: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// Close はデータベース接続を閉じる。
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Get はIDに一致するメニューを返す。
func (r *SQLiteRepository) Get(ctx context.Context, id string) (Menu, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+menuColumns+" FROM menus WHERE id = ?", id)
	m, err := scanMenu(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Menu{}, ErrNotFound
	}
	if err != nil {
		return Menu{}, fmt.Errorf("メニューの取得に失敗: %w", err)
	}
	return m, nil
}

// ListByOwner は所有者IDに一致するメニューを挿入順に返す。
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]Menu, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+menuColumns+" FROM menus WHERE owner_id = ? ORDER BY seq", ownerID)
	if err != nil {
		return nil, fmt.Errorf("メニュー一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	menus := make([]Menu, 0)
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("メニューの読み取りに失敗: %w", err)
		}
		menus = append(menus, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メニュー一覧の取得に失敗: %w", err)
	}
	return menus, nil
}

// UpdateName はメニュー名を更新する。
func (r *SQLiteRepository) UpdateName(ctx context.Context, id, name string) (Menu, error) {
	row := r.db.QueryRowContext(ctx,
		"UPDATE menus SET name = ? WHERE id = ? RETURNING "+menuColumns, name, id)
	m, err := scanMenu(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Menu{}, ErrNotFound
	}
	if err != nil {
		return Menu{}, fmt.Errorf("メニューの更新に失敗: %w", err)
	}
	return m, nil
}

// ClaimOwner は未所有のメニューにownerIDを割り当てる。
// 条件付きUPDATEで判定と更新を1文で行うため、同時に割り当てられるのは1人だけになる。
func (r *SQLiteRepository) ClaimOwner(ctx context.Context, id, ownerID string) (Menu, bool, error) {
	row := r.db.QueryRowContext(ctx,
		"UPDATE menus SET owner_id = ? WHERE id = ? AND owner_id = ? RETURNING "+menuColumns,
		ownerID, id, UnclaimedOwner)
	m, err := scanMenu(row)
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Menu{}, false, fmt.Errorf("所有者の割り当てに失敗: %w", err)
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return Menu{}, false, err
	}
	return current, false, nil
}

// rowScanner は *sql.Row と *sql.Rows の共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenu(s rowScanner) (Menu, error) {
	var m Menu
	var status string
	if err := s.Scan(&m.ID, &m.OwnerID, &m.Name, &status); err != nil {
		return Menu{}, err
	}
	m.Status = Status(status)
	return m, nil
}
