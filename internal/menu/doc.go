// Package menu はメニューレコードとその保存先、所有者ポリシーを提供する。
//
// 保存先は Repository インターフェースで抽象化され、プロセス内のメモリ実装と
// SQLite実装を切り替えられる。所有者ポリシーは Service に集約され、
// 未所有のレコードは最初にアクセスした利用者に割り当てられる（開発用データ専用の挙動）。
package menu
