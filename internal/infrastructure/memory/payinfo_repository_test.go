package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/lumimart/checkout/internal/domain/payment"
)

func TestPayInfoRepository_InsertRejectsSecondIntent(t *testing.T) {
	ctx := context.Background()
	repo := NewPayInfoRepository()

	first, err := domain.New(1001, 1, domain.PlatformAlipay, decimal.NewFromInt(110))
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, first))

	second, err := domain.New(1001, 1, domain.PlatformWechat, decimal.NewFromInt(110))
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Insert(ctx, second), domain.ErrDuplicateIntent)
}

func TestPayInfoRepository_FindByPlatformNumberAfterAttach(t *testing.T) {
	ctx := context.Background()
	repo := NewPayInfoRepository()

	info, err := domain.New(1001, 1, domain.PlatformAlipay, decimal.NewFromInt(110))
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, info))

	_, err = repo.FindByPlatformNumber(ctx, "PN-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	info.PlatformNumber = "PN-1"
	require.NoError(t, repo.Update(ctx, info))

	got, err := repo.FindByPlatformNumber(ctx, "PN-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), got.OrderNo)

	_, err = repo.FindByPlatformNumber(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPayInfoRepository_UpdateDropsSupersededPlatformNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewPayInfoRepository()

	info, err := domain.New(1001, 1, domain.PlatformAlipay, decimal.NewFromInt(110))
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, info))

	info.PlatformNumber = "PN-1"
	require.NoError(t, repo.Update(ctx, info))

	info.PlatformNumber = "PN-2"
	require.NoError(t, repo.Update(ctx, info))

	got, err := repo.FindByPlatformNumber(ctx, "PN-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1001), got.OrderNo)

	_, err = repo.FindByPlatformNumber(ctx, "PN-1")
	assert.ErrorIs(t, err, domain.ErrNotFound, "superseded number must stop resolving")
}
