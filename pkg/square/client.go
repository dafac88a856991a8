package square

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
	pkgerrors "github.com/angelmondragon/marketplace-escrow/pkg/errors"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
)

var (
	errAccessTokenRequired = errors.New("square access token is required")
	errInvalidSquareEnv    = fmt.Errorf("square environment must be %q or %q", config.SquareEnvSandbox, config.SquareEnvProduction)
	errLoggerRequired      = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	config.SquareEnvSandbox:    "https://connect.squareupsandbox.com",
	config.SquareEnvProduction: "https://connect.squareup.com",
}

// refundsAPI is the slice of the SDK the refund rail calls.
type refundsAPI interface {
	RefundPayment(ctx context.Context, request *sq.RefundPaymentRequest, opts ...sqoption.RequestOption) (*sq.RefundPaymentResponse, error)
}

// Client is the card refund rail. Captures happen upstream; this package only gives money back.
type Client struct {
	refunds     refundsAPI
	environment string
	currency    string
	logg        *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURLs[env]),
		sqoption.WithToken(token),
	)
	logg.Info(logg.WithField(ctx, "square_env", env), "square client initialized")
	return &Client{refunds: sdk.Refunds, environment: env, currency: cfg.Currency, logg: logg}, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// RefundPayment returns money to the buyer's original card payment. Square collapses
// calls that share an idempotency key, so a replayed refund never pays out twice.
func (c *Client) RefundPayment(ctx context.Context, params RefundParams) (*RefundResult, error) {
	if c == nil || c.refunds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square client not configured")
	}
	if strings.TrimSpace(params.Currency) == "" {
		params.Currency = c.currency
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	ctx = c.logg.WithFields(ctx, map[string]any{
		"square_operation": "refund_payment",
		"square_env":       c.environment,
		"payment_id":       params.PaymentID,
		"amount_cents":     params.AmountCents,
	})
	c.logg.Info(ctx, "square refund requested")

	resp, err := c.refunds.RefundPayment(ctx, params.toSquareRequest())
	if err != nil {
		mapped := mapError(err, "refund payment")
		c.logg.Error(ctx, "square refund failed", mapped)
		return nil, mapped
	}
	refund := resp.GetRefund()
	if refund == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square refund payment returned no refund")
	}

	result := newRefundResult(refund)
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"refund_id":     result.RefundID,
		"refund_status": result.Status,
	}), "square refund accepted")
	return result, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(raw))
	if env == "" {
		return config.SquareEnvSandbox, nil
	}
	if _, ok := baseURLs[env]; !ok {
		return "", errInvalidSquareEnv
	}
	return env, nil
}
