package workflow

import (
	"context"
	"sort"
	"sync"

	"exit_permit_tool/models"
)

// ── 内存版 Store：与真实仓储相同的条件更新语义 ──

type memStore struct {
	mu   sync.Mutex
	reqs map[string]*models.ExitRequest
}

func newMemStore() *memStore {
	return &memStore{reqs: make(map[string]*models.ExitRequest)}
}

func cloneReq(r *models.ExitRequest) *models.ExitRequest {
	cp := *r
	cp.Items = append([]models.ExitRequestItem(nil), r.Items...)
	return &cp
}

func (s *memStore) CreateRequest(_ context.Context, req *models.ExitRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reqs {
		if existing.TrackingNumber == req.TrackingNumber {
			return ErrDuplicateTracking
		}
	}
	s.reqs[req.ID] = cloneReq(req)
	return nil
}

func (s *memStore) GetRequest(_ context.Context, id string) (*models.ExitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReq(r), nil
}

func (s *memStore) GetRequestByTracking(_ context.Context, tracking string) (*models.ExitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reqs {
		if r.TrackingNumber == tracking {
			return cloneReq(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) ListRequestsByTenant(_ context.Context, tenantID string) ([]models.ExitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ExitRequest
	for _, r := range s.reqs {
		if r.TenantID == tenantID {
			out = append(out, *cloneReq(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TrackingNumber < out[j].TrackingNumber })
	return out, nil
}

func (s *memStore) ListRequestsByStatus(_ context.Context, status Status, page, limit int) ([]models.ExitRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	var all []models.ExitRequest
	for _, r := range s.reqs {
		if r.Status == string(status) {
			all = append(all, *cloneReq(r))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TrackingNumber < all[j].TrackingNumber })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// Transition 与 SQL 条件更新等价：状态不再匹配就是输掉了赛跑
func (s *memStore) Transition(_ context.Context, id string, from Status, patch TransitionPatch) (*models.ExitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != string(from) {
		return nil, ErrConflict
	}
	r.Status = string(patch.To)
	if patch.AdminReviewerID != nil {
		r.AdminReviewerID = patch.AdminReviewerID
		r.AdminNote = patch.AdminNote
		r.AdminReviewDate = patch.AdminReviewDate
	}
	if patch.SecurityOfficerID != nil {
		r.SecurityOfficerID = patch.SecurityOfficerID
		r.SecurityNote = patch.SecurityNote
		r.VerifiedAt = patch.VerifiedAt
	}
	return cloneReq(r), nil
}

// ── 内存发号器 ──

type memSeq struct {
	mu   sync.Mutex
	seqs map[string]int64
}

func newMemSeq() *memSeq { return &memSeq{seqs: make(map[string]int64)} }

func (s *memSeq) NextTrackingSeq(_ context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[day]++
	return s.seqs[day], nil
}

// ── 内存目录 ──

type memDir struct {
	byRole map[Role][]string
}

func (d *memDir) UserIDsByRoles(_ context.Context, roles ...Role) ([]string, error) {
	var out []string
	for _, role := range roles {
		out = append(out, d.byRole[role]...)
	}
	return out, nil
}

// ── 记录型派发器 ──

type sentNote struct {
	Recipients []string
	Kind       string
	Title      string
	Message    string
	RequestID  string
}

type memDispatcher struct {
	mu   sync.Mutex
	sent []sentNote
}

func (d *memDispatcher) Notify(_ context.Context, recipients []string, kind, title, message string, relatedRequestID *string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := sentNote{Recipients: append([]string(nil), recipients...), Kind: kind, Title: title, Message: message}
	if relatedRequestID != nil {
		n.RequestID = *relatedRequestID
	}
	d.sent = append(d.sent, n)
	return nil
}

func (d *memDispatcher) all() []sentNote {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sentNote(nil), d.sent...)
}

// recipientsFor 某事件类型的全部收件人（并集）
func (d *memDispatcher) recipientsFor(kind string) []string {
	var out []string
	for _, n := range d.all() {
		if n.Kind == kind {
			out = append(out, n.Recipients...)
		}
	}
	sort.Strings(out)
	return out
}

// ── 记录型审计 ──

type memAudit struct {
	mu   sync.Mutex
	recs []models.TransitionAudit
}

func (a *memAudit) RecordTransition(_ context.Context, rec models.TransitionAudit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, rec)
	return nil
}

func (a *memAudit) all() []models.TransitionAudit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.TransitionAudit(nil), a.recs...)
}
