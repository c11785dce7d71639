package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-churiwal/quota-gateway/internal/models"
	"github.com/aman-churiwal/quota-gateway/internal/repository/repotest"
)

func newAPIKeyService() (*APIKeyService, *repotest.Store) {
	store := repotest.NewStore()
	return NewAPIKeyService(store.Keys, store.Plans), store
}

func TestHashKey(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashKey(""))
	assert.Len(t, HashKey("secret"), 64)
	assert.Equal(t, HashKey("secret"), HashKey("secret"))
	assert.NotEqual(t, HashKey("secret"), HashKey("Secret"))
}

func TestAPIKeyService_CreateAndResolve(t *testing.T) {
	svc, store := newAPIKeyService()
	ctx := context.Background()
	plan := store.AddPlan("free", 10)

	apiKey, secret, err := svc.Create(ctx, "ci", plan.ID)
	require.NoError(t, err)
	assert.Len(t, secret, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", secret)
	assert.Equal(t, HashKey(secret), apiKey.KeyHash)
	assert.True(t, apiKey.IsActive)

	id, err := svc.Resolve(ctx, secret)
	require.NoError(t, err)
	assert.Equal(t, apiKey.ID, id.KeyID)
	assert.Equal(t, plan.ID, id.PlanID)

	_, other, err := svc.Create(ctx, "ci-2", plan.ID)
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestAPIKeyService_CreateUnknownPlan(t *testing.T) {
	svc, _ := newAPIKeyService()

	_, _, err := svc.Create(context.Background(), "ci", uuid.New())
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestAPIKeyService_Resolve(t *testing.T) {
	svc, store := newAPIKeyService()
	ctx := context.Background()
	plan := store.AddPlan("free", 10)
	deactivated := store.AddKey(HashKey("old-secret"), plan.ID)
	require.NoError(t, store.Keys.Update(ctx, deactivated.ID, map[string]interface{}{"is_active": false}))

	_, err := svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = svc.Resolve(ctx, "   ")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = svc.Resolve(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	_, err = svc.Resolve(ctx, "old-secret")
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	boom := errors.New("connection refused")
	store.FailWith(boom)
	_, err = svc.Resolve(ctx, "anything")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidAPIKey)
}

func TestAPIKeyService_Update(t *testing.T) {
	svc, store := newAPIKeyService()
	ctx := context.Background()
	free := store.AddPlan("free", 10)
	pro := store.AddPlan("pro", 100)

	apiKey, secret, err := svc.Create(ctx, "ci", free.ID)
	require.NoError(t, err)

	label := "renamed"
	inactive := false
	updated, err := svc.Update(ctx, apiKey.ID, APIKeyUpdate{Label: &label, IsActive: &inactive, PlanID: &pro.ID})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Label)
	assert.False(t, updated.IsActive)
	assert.Equal(t, pro.ID, updated.PlanID)

	_, err = svc.Resolve(ctx, secret)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)

	missingPlan := uuid.New()
	_, err = svc.Update(ctx, apiKey.ID, APIKeyUpdate{PlanID: &missingPlan})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = svc.Update(ctx, uuid.New(), APIKeyUpdate{Label: &label})
	assert.ErrorIs(t, err, ErrAPIKeyNotFound)
}

func TestAPIKeyService_Delete(t *testing.T) {
	svc, store := newAPIKeyService()
	ctx := context.Background()
	plan := store.AddPlan("free", 10)

	apiKey, _, err := svc.Create(ctx, "ci", plan.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, apiKey.ID))
	_, err = svc.Get(ctx, apiKey.ID)
	assert.ErrorIs(t, err, ErrAPIKeyNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, apiKey.ID), ErrAPIKeyNotFound)
}

func TestAPIKeyService_ListOldestFirst(t *testing.T) {
	svc, store := newAPIKeyService()
	ctx := context.Background()
	plan := store.AddPlan("free", 10)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newest := &models.APIKey{KeyHash: "c", Label: "newest", PlanID: plan.ID, IsActive: true, CreatedAt: base.Add(2 * time.Hour)}
	oldest := &models.APIKey{KeyHash: "a", Label: "oldest", PlanID: plan.ID, IsActive: true, CreatedAt: base}
	middle := &models.APIKey{KeyHash: "b", Label: "middle", PlanID: plan.ID, IsActive: true, CreatedAt: base.Add(time.Hour)}
	for _, k := range []*models.APIKey{newest, oldest, middle} {
		require.NoError(t, store.Keys.Create(ctx, k))
	}

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, []string{"oldest", "middle", "newest"}, []string{keys[0].Label, keys[1].Label, keys[2].Label})
}
