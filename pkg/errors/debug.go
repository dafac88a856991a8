package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain into loggable fields.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Retryable  bool     `json:"retryable"`
	Chain      []string `json:"chain,omitempty"`
	Postgres   pgDetail `json:"postgres"`
}

// pgDetail is the driver-neutral view of a Postgres error; pgx and lib/pq both land here.
type pgDetail struct {
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error(), Retryable: Retryable(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.Postgres = postgresDetail(err)
	return d
}

func postgresDetail(err error) pgDetail {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgDetail{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgDetail{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return pgDetail{}
}

// Fields renders the non-empty parts of the dump as structured log fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":           d.TopMessage,
		"error_code":      d.Code,
		"error_retryable": d.Retryable,
		"error_chain":     d.Chain,
	}
	for key, value := range map[string]string{
		"pg_code":       d.Postgres.Code,
		"pg_constraint": d.Postgres.Constraint,
		"pg_table":      d.Postgres.Table,
		"pg_column":     d.Postgres.Column,
		"pg_detail":     d.Postgres.Detail,
		"pg_message":    d.Postgres.Message,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
