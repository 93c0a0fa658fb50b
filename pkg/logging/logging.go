// Package logging は構造化ログ（JSON形式）のロガー生成を提供する。
//
// 利用者IDや所有者IDは Truncate を通してからログに出力し、
// 識別子全体が平文でログに残らないようにする。
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// truncateLength はログに残す識別子の先頭文字数。
const truncateLength = 8

// New はLOG_LEVELの文字列に従ったJSON形式のロガーを生成する。
func New(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// ParseLevel はログレベル文字列を slog.Level に変換する。
// 大文字小文字は区別せず、不明な値はINFOとして扱う。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "critical":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Truncate は識別子の先頭8文字に "..." を付けた文字列を返す。
func Truncate(id string) string {
	runes := []rune(id)
	if len(runes) > truncateLength {
		runes = runes[:truncateLength]
	}
	return string(runes) + "..."
}

// Discard は出力を捨てるロガーを返す。テストやロガー未指定時に使う。
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
