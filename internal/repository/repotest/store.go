// Package repotest provides in-memory plan and API key stores for tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aman-churiwal/quota-gateway/internal/models"
	"github.com/aman-churiwal/quota-gateway/internal/repository"
)

// Store holds plans and keys behind one lock so referential checks see a consistent view.
type Store struct {
	mu      sync.Mutex
	plans   map[uuid.UUID]models.Plan
	keys    map[uuid.UUID]models.APIKey
	err     error
	lookups int

	Plans *Plans
	Keys  *Keys
}

func NewStore() *Store {
	s := &Store{
		plans: make(map[uuid.UUID]models.Plan),
		keys:  make(map[uuid.UUID]models.APIKey),
	}
	s.Plans = &Plans{s: s}
	s.Keys = &Keys{s: s}
	return s
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// PlanLookups returns how many times Plans.FindByID reached the store.
func (s *Store) PlanLookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

// AddPlan inserts a plan directly and returns it.
func (s *Store) AddPlan(name string, rpm int) models.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Plan{ID: uuid.New(), Name: name, DefaultRPM: rpm, CreatedAt: time.Now().UTC()}
	s.plans[p.ID] = p
	return p
}

// AddKey inserts an active key with the given fingerprint directly and returns it.
func (s *Store) AddKey(hash string, planID uuid.UUID) models.APIKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := models.APIKey{ID: uuid.New(), KeyHash: hash, Label: "test", PlanID: planID, IsActive: true, CreatedAt: time.Now().UTC()}
	s.keys[k.ID] = k
	return k
}

type Plans struct {
	s *Store
}

func (p *Plans) Create(_ context.Context, plan *models.Plan) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, existing := range s.plans {
		if existing.Name == plan.Name {
			return repository.ErrDuplicate
		}
	}
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	plan.CreatedAt = time.Now().UTC()
	s.plans[plan.ID] = *plan
	return nil
}

func (p *Plans) FindByID(_ context.Context, id uuid.UUID) (*models.Plan, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	plan, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (p *Plans) List(_ context.Context) ([]models.Plan, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Plan, 0, len(s.plans))
	for _, plan := range s.plans {
		out = append(out, plan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (p *Plans) Update(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	plan, ok := s.plans[id]
	if !ok {
		return nil
	}
	if name, ok := updates["name"].(string); ok {
		for otherID, other := range s.plans {
			if otherID != id && other.Name == name {
				return repository.ErrDuplicate
			}
		}
		plan.Name = name
	}
	if rpm, ok := updates["default_rpm"].(int); ok {
		plan.DefaultRPM = rpm
	}
	s.plans[id] = plan
	return nil
}

func (p *Plans) Delete(_ context.Context, id uuid.UUID) error {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, k := range s.keys {
		if k.PlanID == id {
			return repository.ErrReferenced
		}
	}
	delete(s.plans, id)
	return nil
}

func (p *Plans) Count(_ context.Context) (int64, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.plans)), nil
}

type Keys struct {
	s *Store
}

func (k *Keys) Create(_ context.Context, key *models.APIKey) error {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.plans[key.PlanID]; !ok {
		return repository.ErrReferenced
	}
	for _, existing := range s.keys {
		if existing.KeyHash == key.KeyHash {
			return repository.ErrDuplicate
		}
	}
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	s.keys[key.ID] = *key
	return nil
}

func (k *Keys) FindActiveByHash(_ context.Context, hash string) (*models.APIKey, error) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, key := range s.keys {
		if key.KeyHash == hash && key.IsActive {
			return &key, nil
		}
	}
	return nil, nil
}

func (k *Keys) FindByID(_ context.Context, id uuid.UUID) (*models.APIKey, error) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	key, ok := s.keys[id]
	if !ok {
		return nil, nil
	}
	return &key, nil
}

func (k *Keys) List(_ context.Context) ([]models.APIKey, error) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (k *Keys) Update(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	key, ok := s.keys[id]
	if !ok {
		return nil
	}
	if label, ok := updates["label"].(string); ok {
		key.Label = label
	}
	if active, ok := updates["is_active"].(bool); ok {
		key.IsActive = active
	}
	if planID, ok := updates["plan_id"].(uuid.UUID); ok {
		if _, exists := s.plans[planID]; !exists {
			return repository.ErrReferenced
		}
		key.PlanID = planID
	}
	s.keys[id] = key
	return nil
}

func (k *Keys) UpdateLastUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	key, ok := s.keys[id]
	if !ok {
		return nil
	}
	key.LastUsedAt = &at
	s.keys[id] = key
	return nil
}

func (k *Keys) Delete(_ context.Context, id uuid.UUID) error {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.keys, id)
	return nil
}

func (k *Keys) ExistsForPlan(_ context.Context, planID uuid.UUID) (bool, error) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	for _, key := range s.keys {
		if key.PlanID == planID {
			return true, nil
		}
	}
	return false, nil
}

func (k *Keys) Count(_ context.Context) (int64, error) {
	s := k.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.keys)), nil
}
