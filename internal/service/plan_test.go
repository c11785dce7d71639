package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-churiwal/quota-gateway/internal/repository/repotest"
)

func newPlanService() (*PlanService, *repotest.Store) {
	store := repotest.NewStore()
	return NewPlanService(store.Plans, store.Keys), store
}

func TestPlanService_Create(t *testing.T) {
	svc, _ := newPlanService()
	ctx := context.Background()

	plan, err := svc.Create(ctx, "free", 10)
	require.NoError(t, err)
	assert.Equal(t, "free", plan.Name)
	assert.Equal(t, 10, plan.DefaultRPM)

	_, err = svc.Create(ctx, "free", 20)
	assert.ErrorIs(t, err, ErrPlanNameTaken)

	_, err = svc.Create(ctx, "negative", -1)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	zero, err := svc.Create(ctx, "blocked", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, zero.DefaultRPM)
}

func TestPlanService_Update(t *testing.T) {
	svc, store := newPlanService()
	ctx := context.Background()
	free := store.AddPlan("free", 10)
	store.AddPlan("pro", 100)

	rpm := 30
	updated, err := svc.Update(ctx, free.ID, PlanUpdate{DefaultRPM: &rpm})
	require.NoError(t, err)
	assert.Equal(t, 30, updated.DefaultRPM)

	taken := "pro"
	_, err = svc.Update(ctx, free.ID, PlanUpdate{Name: &taken})
	assert.ErrorIs(t, err, ErrPlanNameTaken)

	negative := -5
	_, err = svc.Update(ctx, free.ID, PlanUpdate{DefaultRPM: &negative})
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = svc.Update(ctx, uuid.New(), PlanUpdate{DefaultRPM: &rpm})
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestPlanService_DeleteInUse(t *testing.T) {
	svc, store := newPlanService()
	ctx := context.Background()
	plan := store.AddPlan("free", 10)
	key := store.AddKey(HashKey("secret"), plan.ID)

	assert.ErrorIs(t, svc.Delete(ctx, plan.ID), ErrPlanInUse)

	// Deactivated keys still hold the reference.
	require.NoError(t, store.Keys.Update(ctx, key.ID, map[string]interface{}{"is_active": false}))
	assert.ErrorIs(t, svc.Delete(ctx, plan.ID), ErrPlanInUse)

	require.NoError(t, store.Keys.Delete(ctx, key.ID))
	require.NoError(t, svc.Delete(ctx, plan.ID))

	_, err := svc.Get(ctx, plan.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, plan.ID), ErrPlanNotFound)
}
