package lobby

import "mazeserver/models"

// userRegistry はユーザー名をキーにしたオンラインユーザーの一覧。
// 登録順を保持し、マッチメイキングの走査順を決定的にする
type userRegistry struct {
	users map[string]*models.User
	order []string
}

func newUserRegistry() *userRegistry {
	return &userRegistry{users: make(map[string]*models.User)}
}

func (r *userRegistry) get(username string) *models.User {
	return r.users[username]
}

func (r *userRegistry) insert(u *models.User) bool {
	if _, exists := r.users[u.Username]; exists {
		return false
	}
	r.users[u.Username] = u
	r.order = append(r.order, u.Username)
	return true
}

func (r *userRegistry) remove(username string) *models.User {
	u, ok := r.users[username]
	if !ok {
		return nil
	}
	delete(r.users, username)
	for i, name := range r.order {
		if name == username {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return u
}

// each は登録順にユーザーを渡します。fnがfalseを返すと走査を終了します。
func (r *userRegistry) each(fn func(u *models.User) bool) {
	for _, name := range r.order {
		if !fn(r.users[name]) {
			return
		}
	}
}

func (r *userRegistry) len() int {
	return len(r.users)
}

// matchStore は進行中の対戦をIDで保持します。IDは削除されても再利用しない
type matchStore struct {
	matches map[uint64]*models.Match
	nextID  uint64
}

func newMatchStore() *matchStore {
	return &matchStore{matches: make(map[uint64]*models.Match), nextID: 1}
}

func (s *matchStore) insert(m *models.Match) {
	m.ID = s.nextID
	s.nextID++
	s.matches[m.ID] = m
}

func (s *matchStore) get(id uint64) *models.Match {
	return s.matches[id]
}

func (s *matchStore) remove(id uint64) *models.Match {
	m, ok := s.matches[id]
	if !ok {
		return nil
	}
	delete(s.matches, id)
	return m
}

// findByUser はユーザーが参加している対戦を返します。
func (s *matchStore) findByUser(username string) *models.Match {
	for _, m := range s.matches {
		if m.Has(username) {
			return m
		}
	}
	return nil
}

// codePool は招待コードの発行状況を管理します。
type codePool struct {
	issued  map[int]bool
	reclaim bool
}

func newCodePool(reclaim bool) *codePool {
	return &codePool{issued: make(map[int]bool), reclaim: reclaim}
}

// allocate は未使用の最小の正の整数を発行します。
func (p *codePool) allocate() int {
	code := 1
	for p.issued[code] {
		code++
	}
	p.issued[code] = true
	return code
}

// release はreclaimが有効な場合のみコードを再利用可能にします。
func (p *codePool) release(code int) {
	if p.reclaim {
		delete(p.issued, code)
	}
}
