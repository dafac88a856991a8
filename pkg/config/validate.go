package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/marketplace-escrow/pkg/enums"
)

const defaultSQLiteDSN = "file:escrow.db?_busy_timeout=5000&_foreign_keys=on"

func (c *Config) validate() error {
	return multierr.Combine(
		c.DB.resolveDSN(),
		c.Settlement.validate(),
		c.Square.validate(),
		c.Outbox.validate(),
	)
}

// resolveDSN fills DSN from the discrete parts when it was not given directly.
func (db *DBConfig) resolveDSN() error {
	switch {
	case db.DSN != "":
		return nil
	case db.Driver == DriverSQLite:
		db.DSN = defaultSQLiteDSN
		return nil
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	user := url.User(db.User)
	if db.Password != "" {
		user = url.UserPassword(db.User, db.Password)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}

func (s SettlementConfig) validate() error {
	var errs error
	if s.DefaultFeeBPS < 0 || s.DefaultFeeBPS >= 10000 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be in [0, 10000)", EnvDefaultFeeBPS))
	}
	switch strings.ToLower(strings.TrimSpace(s.DisputeReleaseBasis)) {
	case ReleaseBasisGross, ReleaseBasisNet:
	default:
		errs = multierr.Append(errs, fmt.Errorf("%s must be %q or %q", EnvDisputeReleaseBasis, ReleaseBasisGross, ReleaseBasisNet))
	}
	if s.AutoCompleteAfter <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvAutoCompleteAfter))
	}
	if id, err := uuid.Parse(strings.TrimSpace(s.SystemActorID)); err != nil || id == uuid.Nil {
		errs = multierr.Append(errs, fmt.Errorf("%s must be a non-nil uuid", EnvSystemActorID))
	}
	return errs
}

func (s SquareConfig) validate() error {
	var errs error
	switch s.Environment() {
	case SquareEnvSandbox, SquareEnvProduction:
	default:
		errs = multierr.Append(errs, fmt.Errorf("%s must be %q or %q", EnvSquareEnv, SquareEnvSandbox, SquareEnvProduction))
	}
	if _, err := enums.ParseCurrency(s.Currency); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", EnvSquareCurrency, err))
	}
	return errs
}

func (o OutboxConfig) validate() error {
	if o.MaxAttempts < 1 {
		return errors.New(EnvOutboxMaxAttempts + " must be at least 1")
	}
	return nil
}
