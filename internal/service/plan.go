package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aman-churiwal/quota-gateway/internal/models"
	"github.com/aman-churiwal/quota-gateway/internal/repository"
	"github.com/google/uuid"
)

// PlanUpdate holds the optional fields of a plan update. Nil fields are left unchanged.
type PlanUpdate struct {
	Name       *string
	DefaultRPM *int
}

type PlanService struct {
	plans PlanStore
	keys  APIKeyStore
}

func NewPlanService(plans PlanStore, keys APIKeyStore) *PlanService {
	return &PlanService{
		plans: plans,
		keys:  keys,
	}
}

func (s *PlanService) Create(ctx context.Context, name string, defaultRPM int) (*models.Plan, error) {
	if defaultRPM < 0 {
		return nil, ErrInvalidLimit
	}

	plan := &models.Plan{Name: name, DefaultRPM: defaultRPM}
	if err := s.plans.Create(ctx, plan); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrPlanNameTaken
		}
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	return plan, nil
}

func (s *PlanService) Get(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func (s *PlanService) List(ctx context.Context) ([]models.Plan, error) {
	return s.plans.List(ctx)
}

// Update changes a plan. Running gateways pick up a new limit once their cached entry expires.
func (s *PlanService) Update(ctx context.Context, id uuid.UUID, upd PlanUpdate) (*models.Plan, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.DefaultRPM != nil {
		if *upd.DefaultRPM < 0 {
			return nil, ErrInvalidLimit
		}
		updates["default_rpm"] = *upd.DefaultRPM
	}

	if len(updates) > 0 {
		if err := s.plans.Update(ctx, id, updates); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrPlanNameTaken
			}
			return nil, err
		}
	}

	return s.Get(ctx, id)
}

// Delete removes a plan that no key references.
func (s *PlanService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	inUse, err := s.keys.ExistsForPlan(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrPlanInUse
	}

	if err := s.plans.Delete(ctx, id); err != nil {
		// A key created after the check above still blocks the delete at the foreign key.
		if errors.Is(err, repository.ErrReferenced) {
			return ErrPlanInUse
		}
		return err
	}

	return nil
}

func (s *PlanService) Count(ctx context.Context) (int64, error) {
	return s.plans.Count(ctx)
}
