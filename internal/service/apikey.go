package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/aman-churiwal/quota-gateway/internal/models"
	"github.com/aman-churiwal/quota-gateway/internal/repository"
	"github.com/google/uuid"
)

const keyBytes = 16

// Identity is what a presented secret resolves to.
type Identity struct {
	KeyID  uuid.UUID
	PlanID uuid.UUID
}

// APIKeyUpdate holds the optional fields of a key update. Nil fields are left unchanged.
type APIKeyUpdate struct {
	Label    *string
	IsActive *bool
	PlanID   *uuid.UUID
}

type APIKeyService struct {
	keys  APIKeyStore
	plans PlanStore
}

func NewAPIKeyService(keys APIKeyStore, plans PlanStore) *APIKeyService {
	return &APIKeyService{
		keys:  keys,
		plans: plans,
	}
}

// HashKey returns the hex SHA-256 fingerprint stored in place of the secret.
func HashKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Resolve turns a presented secret into the key and plan it belongs to.
func (s *APIKeyService) Resolve(ctx context.Context, secret string) (Identity, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return Identity{}, ErrMissingAPIKey
	}

	apiKey, err := s.keys.FindActiveByHash(ctx, HashKey(secret))
	if err != nil {
		return Identity{}, fmt.Errorf("failed to look up api key: %w", err)
	}
	if apiKey == nil {
		return Identity{}, ErrInvalidAPIKey
	}

	return Identity{KeyID: apiKey.ID, PlanID: apiKey.PlanID}, nil
}

// Create issues a new key on the given plan. The plaintext secret is returned only here.
func (s *APIKeyService) Create(ctx context.Context, label string, planID uuid.UUID) (*models.APIKey, string, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, "", err
	}
	if plan == nil {
		return nil, "", ErrPlanNotFound
	}

	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", fmt.Errorf("failed to generate random key: %w", err)
	}
	secret := hex.EncodeToString(buf)

	apiKey := &models.APIKey{
		KeyHash:  HashKey(secret),
		Label:    label,
		PlanID:   planID,
		IsActive: true,
	}

	if err := s.keys.Create(ctx, apiKey); err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			return nil, "", ErrPlanNotFound
		}
		return nil, "", fmt.Errorf("failed to create API key: %w", err)
	}

	return apiKey, secret, nil
}

func (s *APIKeyService) Get(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	apiKey, err := s.keys.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return nil, ErrAPIKeyNotFound
	}
	return apiKey, nil
}

func (s *APIKeyService) List(ctx context.Context) ([]models.APIKey, error) {
	return s.keys.List(ctx)
}

func (s *APIKeyService) Update(ctx context.Context, id uuid.UUID, upd APIKeyUpdate) (*models.APIKey, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if upd.Label != nil {
		updates["label"] = *upd.Label
	}
	if upd.IsActive != nil {
		updates["is_active"] = *upd.IsActive
	}
	if upd.PlanID != nil {
		plan, err := s.plans.FindByID(ctx, *upd.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, ErrPlanNotFound
		}
		updates["plan_id"] = *upd.PlanID
	}

	if len(updates) > 0 {
		if err := s.keys.Update(ctx, id, updates); err != nil {
			if errors.Is(err, repository.ErrReferenced) {
				return nil, ErrPlanNotFound
			}
			return nil, err
		}
	}

	return s.Get(ctx, id)
}

func (s *APIKeyService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.keys.Delete(ctx, id)
}

func (s *APIKeyService) Count(ctx context.Context) (int64, error) {
	return s.keys.Count(ctx)
}
