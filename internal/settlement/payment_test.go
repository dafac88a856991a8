package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
	"github.com/angelmondragon/marketplace-escrow/pkg/metrics"
)

func TestRecordPaymentEscrowsNetAmount(t *testing.T) {
	h := newHarness(t, defaultOptions())
	buyer, seller := uuid.New(), uuid.New()
	fee := int64(50)
	listingID := h.listing(seller, 1000)

	res, err := h.svc.RecordPayment(context.Background(), RecordPaymentInput{
		Actor:       system,
		ListingID:   listingID,
		BuyerID:     buyer,
		SellerID:    seller,
		AmountCents: 1000,
		FeeCents:    &fee,
		PaymentRef:  "pay_1",
	})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, enums.TransactionStatusPending, res.Transaction.Status)
	assert.Equal(t, enums.ShipmentStatusPendingShipment, res.Transaction.ShipmentStatus)
	assert.Equal(t, int64(950), res.Transaction.NetAmountCents)
	require.NotNil(t, res.Wallet)
	assert.Equal(t, int64(950), res.Wallet.PendingCents)
	assert.Equal(t, int64(0), res.Wallet.BalanceCents)

	w := h.wallet(seller)
	assert.Equal(t, int64(950), w.EscrowHeldCents)
	assert.Equal(t, int64(0), w.PayoutHeldCents)

	purchasable, err := h.listings.IsPurchasable(context.Background(), listingID)
	require.NoError(t, err)
	assert.False(t, purchasable)

	assert.Equal(t, int64(1), h.countEvents(enums.EventPaymentRecorded))
	assert.Equal(t, 1, h.notifier.count(enums.NotificationTypeSaleRecorded))
	assert.Contains(t, h.cache.evicted, seller)
	assert.Equal(t, []string{metrics.OutcomeSuccess}, h.metrics.outcomes["record_payment"])
}

func TestRecordPaymentAppliesDefaultFee(t *testing.T) {
	h := newHarness(t, Options{DefaultFeeBPS: 250})
	buyer, seller := uuid.New(), uuid.New()

	res, err := h.svc.RecordPayment(context.Background(), RecordPaymentInput{
		Actor:       system,
		ListingID:   h.listing(seller, 2000),
		BuyerID:     buyer,
		SellerID:    seller,
		AmountCents: 2000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), res.Transaction.FeeCents)
	assert.Equal(t, int64(1950), h.wallet(seller).EscrowHeldCents)
}

func TestRecordPaymentReplayIsIdempotent(t *testing.T) {
	h := newHarness(t, defaultOptions())
	buyer, seller := uuid.New(), uuid.New()
	input := RecordPaymentInput{
		Actor:       system,
		ListingID:   h.listing(seller, 1000),
		BuyerID:     buyer,
		SellerID:    seller,
		AmountCents: 1000,
		PaymentRef:  "pay_replay",
	}

	first, err := h.svc.RecordPayment(context.Background(), input)
	require.NoError(t, err)
	second, err := h.svc.RecordPayment(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.Equal(t, int64(950), h.wallet(seller).EscrowHeldCents)
	assert.Equal(t, int64(1), h.countEvents(enums.EventPaymentRecorded))

	input.AmountCents = 1200
	_, err = h.svc.RecordPayment(context.Background(), input)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestRecordPaymentListingUnavailable(t *testing.T) {
	h := newHarness(t, defaultOptions())
	buyer, seller := uuid.New(), uuid.New()
	listingID := h.listing(seller, 1000)

	_, err := h.svc.RecordPayment(context.Background(), RecordPaymentInput{
		Actor: system, ListingID: listingID, BuyerID: buyer, SellerID: seller, AmountCents: 1000, PaymentRef: "pay_a",
	})
	require.NoError(t, err)

	_, err = h.svc.RecordPayment(context.Background(), RecordPaymentInput{
		Actor: system, ListingID: listingID, BuyerID: uuid.New(), SellerID: seller, AmountCents: 1000, PaymentRef: "pay_b",
	})
	assert.Equal(t, KindListingUnavailable, KindOf(err))

	_, err = h.svc.RecordPayment(context.Background(), RecordPaymentInput{
		Actor: system, ListingID: uuid.New(), BuyerID: buyer, SellerID: seller, AmountCents: 1000,
	})
	assert.Equal(t, KindListingUnavailable, KindOf(err))

	assert.Equal(t, int64(950), h.wallet(seller).EscrowHeldCents)
}

func TestRecordPaymentValidation(t *testing.T) {
	h := newHarness(t, defaultOptions())
	buyer, seller := uuid.New(), uuid.New()
	listingID := h.listing(seller, 1000)
	fee := int64(1000)

	cases := map[string]struct {
		input RecordPaymentInput
		kind  Kind
	}{
		"user actor":       {RecordPaymentInput{Actor: user(buyer), ListingID: listingID, BuyerID: buyer, SellerID: seller, AmountCents: 1000}, KindUnauthorized},
		"zero amount":      {RecordPaymentInput{Actor: system, ListingID: listingID, BuyerID: buyer, SellerID: seller}, KindValidation},
		"fee equal amount": {RecordPaymentInput{Actor: system, ListingID: listingID, BuyerID: buyer, SellerID: seller, AmountCents: 1000, FeeCents: &fee}, KindValidation},
		"self purchase":    {RecordPaymentInput{Actor: system, ListingID: listingID, BuyerID: seller, SellerID: seller, AmountCents: 1000}, KindValidation},
		"wrong seller":     {RecordPaymentInput{Actor: system, ListingID: listingID, BuyerID: buyer, SellerID: uuid.New(), AmountCents: 1000}, KindValidation},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.svc.RecordPayment(context.Background(), tc.input)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}

	purchasable, err := h.listings.IsPurchasable(context.Background(), listingID)
	require.NoError(t, err)
	assert.True(t, purchasable)
}

func TestRecordPaymentCashOnDelivery(t *testing.T) {
	h := newHarness(t, defaultOptions())
	buyer, seller := uuid.New(), uuid.New()

	res, err := h.svc.RecordPayment(context.Background(), RecordPaymentInput{
		Actor:         system,
		ListingID:     h.listing(seller, 1000),
		BuyerID:       buyer,
		SellerID:      seller,
		AmountCents:   1000,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.TransactionStatusPendingCOD, res.Transaction.Status)
	assert.Equal(t, enums.PaymentMethodCOD, res.Transaction.PaymentMethod)
}
