package menu

import (
	"context"
	"sync"
)

// MemoryRepository はプロセス内のメモリに保持する Repository 実装。
type MemoryRepository struct {
	// mu はmenusとorderを保護する。
	mu sync.RWMutex
	// menus はIDをキーとするレコード。
	menus map[string]Menu
	// order はIDの挿入順。
	order []string
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository はseedを挿入順に保持するリポジトリを生成する。
// 同じIDが複数ある場合は最初のものを使う。
func NewMemoryRepository(seed ...Menu) *MemoryRepository {
	r := &MemoryRepository{
		menus: make(map[string]Menu, len(seed)),
	}
	for _, m := range seed {
		if _, ok := r.menus[m.ID]; ok {
			continue
		}
		r.menus[m.ID] = m
		r.order = append(r.order, m.ID)
	}
	return r
}

// Get はIDに一致するメニューを返す。
func (r *MemoryRepository) Get(_ context.Context, id string) (Menu, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.menus[id]
	if !ok {
		return Menu{}, ErrNotFound
	}
	return m, nil
}

// ListByOwner は所有者IDに一致するメニューを挿入順に返す。
func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]Menu, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	menus := make([]Menu, 0)
	for _, id := range r.order {
		if m := r.menus[id]; m.OwnerID == ownerID {
			menus = append(menus, m)
		}
	}
	return menus, nil
}

// UpdateName はメニュー名を更新する。
func (r *MemoryRepository) UpdateName(_ context.Context, id, name string) (Menu, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.menus[id]
	if !ok {
		return Menu{}, ErrNotFound
	}
	m.Name = name
	r.menus[id] = m
	return m, nil
}

// ClaimOwner は未所有のメニューにownerIDを割り当てる。
func (r *MemoryRepository) ClaimOwner(_ context.Context, id, ownerID string) (Menu, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.menus[id]
	if !ok {
		return Menu{}, false, ErrNotFound
	}
	if m.OwnerID != UnclaimedOwner {
		return m, false, nil
	}
	m.OwnerID = ownerID
	r.menus[id] = m
	return m, true, nil
}
