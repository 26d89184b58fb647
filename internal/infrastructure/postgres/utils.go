package postgres

import (
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

// psql builder de squirrel con placeholders $1, $2...
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == "23505"
}

// isCheckViolation 23514: la base rechazó un saldo de capa fuera de [0, original].
func isCheckViolation(err error) bool {
	return pgErrorCode(err) == "23514"
}

// isLockTimeout 55P03: venció lock_timeout esperando el lock de (ítem, bodega).
func isLockTimeout(err error) bool {
	return pgErrorCode(err) == "55P03"
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
