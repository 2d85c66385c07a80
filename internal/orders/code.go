package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const codeDayFormat = "20060102"

// CodeGenerator allocates human-readable order codes of the form
// PREFIX-YYYYMMDD-NNNN. The per-day counter advances through a single
// upsert-returning statement, so concurrent callers never observe the same
// value and the sequence resets naturally at midnight.
type CodeGenerator struct {
	prefix string
}

// NewCodeGenerator builds a generator with the given code prefix.
func NewCodeGenerator(prefix string) CodeGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "POS"
	}
	return CodeGenerator{prefix: prefix}
}

// Next reserves the next code for the given day inside tx. The reservation
// commits or rolls back with the surrounding transaction, so an aborted order
// can leave gaps in the sequence but never duplicates.
func (g CodeGenerator) Next(ctx context.Context, tx *gorm.DB, now time.Time) (string, error) {
	day := now.Format(codeDayFormat)

	var value int64
	err := tx.WithContext(ctx).Raw(
		`INSERT INTO order_code_seqs (day, value) VALUES (?, 1)
		 ON CONFLICT (day) DO UPDATE SET value = order_code_seqs.value + 1
		 RETURNING value`,
		day,
	).Scan(&value).Error
	if err != nil {
		return "", fmt.Errorf("allocate order code: %w", err)
	}

	return fmt.Sprintf("%s-%s-%04d", g.prefix, day, value), nil
}
