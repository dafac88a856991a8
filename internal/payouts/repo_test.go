package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-escrow/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-escrow/pkg/db/models"
	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
)

func pendingRequest(seller uuid.UUID, amount int64) *models.PayoutRequest {
	return &models.PayoutRequest{
		SellerID:    seller,
		AmountCents: amount,
		Method:      enums.PayoutMethodBankTransfer,
		Details:     "IBAN DE00 1234",
		Status:      enums.PayoutStatusPending,
	}
}

func TestMarkResolvedOnlyOnce(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	ctx := context.Background()

	request := pendingRequest(uuid.New(), 500)
	require.NoError(t, repo.Create(ctx, request))

	now := time.Now().UTC()
	reviewer := uuid.New()
	request.Status = ResolvedStatus(enums.PayoutDecisionApprove)
	request.ReviewedBy = &reviewer
	request.ResolvedAt = &now
	require.NoError(t, repo.MarkResolved(ctx, request))

	request.Status = enums.PayoutStatusRejected
	err := repo.MarkResolved(ctx, request)
	assert.True(t, IsAlreadyResolved(err), "got %v", err)

	stored, err := repo.FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PayoutStatusProcessed, stored.Status)
	assert.Equal(t, int64(500), stored.AmountCents)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, reviewer, *stored.ReviewedBy)
}

func TestReaderScopesBySeller(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	reader, err := NewReader(repo)
	require.NoError(t, err)
	ctx := context.Background()

	seller := uuid.New()
	require.NoError(t, repo.Create(ctx, pendingRequest(seller, 100)))
	require.NoError(t, repo.Create(ctx, pendingRequest(seller, 200)))
	require.NoError(t, repo.Create(ctx, pendingRequest(uuid.New(), 300)))

	own, err := reader.List(ctx, Query{SellerID: &seller})
	require.NoError(t, err)
	assert.Len(t, own.Items, 2)

	all, err := reader.List(ctx, Query{Status: "PENDING"})
	require.NoError(t, err)
	assert.Len(t, all.Items, 3)

	_, err = reader.List(ctx, Query{Status: "DONE"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestValidateRequest(t *testing.T) {
	cases := []struct {
		name    string
		amount  int64
		method  enums.PayoutMethod
		details string
		ok      bool
	}{
		{"valid", 100, enums.PayoutMethodPayPal, " me@example.com ", true},
		{"zero amount", 0, enums.PayoutMethodPayPal, "me@example.com", false},
		{"unknown method", 100, "CHEQUE", "me@example.com", false},
		{"blank details", 100, enums.PayoutMethodMobileMoney, " ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			details, err := ValidateRequest(tc.amount, tc.method, tc.details)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, "me@example.com", details)
				return
			}
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}

	assert.True(t, pkgerrors.IsCode(CheckResolvable(&models.PayoutRequest{Status: enums.PayoutStatusRejected}), pkgerrors.CodeAlreadyProcessed))
}
