package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/irpf"
)

// registryRow holds the columns shared by bonus_info and subscription_info.
type registryRow struct {
	id, institution, ticker string
	fromQuantity            irpf.Quantity
	fromTotal               irpf.Money
	quantity                irpf.Quantity
	total                   irpf.Money
}

func (d *DB) registryRow(ctx context.Context, q sqlQuerier, table, idColumn, id, institution string) (*registryRow, error) {
	var fromQuantity, fromTotal, quantity, total string
	r := registryRow{id: id, institution: institution}
	err := q.QueryRowContext(ctx, `
		SELECT ticker, from_quantity, from_total, quantity, total
		  FROM `+table+`
		 WHERE `+idColumn+` = ? AND institution = ?`,
		id, institution,
	).Scan(&r.ticker, &fromQuantity, &fromTotal, &quantity, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s %s: %w", table, id, err)
	}
	var dec row
	r.fromQuantity, r.fromTotal = dec.quantity(fromQuantity), dec.money(fromTotal)
	r.quantity, r.total = dec.quantity(quantity), dec.money(total)
	if dec.err != nil {
		return nil, fmt.Errorf("%s %s: %w", table, id, dec.err)
	}
	return &r, nil
}

// saveRegistryRow writes r unless the stored row already holds the same
// figures, and reports whether it wrote.
func (d *DB) saveRegistryRow(ctx context.Context, table, idColumn string, r registryRow, equal func(old registryRow) bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var written bool
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		old, err := d.registryRow(ctx, tx, table, idColumn, r.id, r.institution)
		if err != nil {
			return err
		}
		if old != nil && equal(*old) {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO `+table+` (`+idColumn+`, institution, ticker, from_quantity, from_total, quantity, total)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (`+idColumn+`, institution) DO UPDATE SET
				ticker = excluded.ticker,
				from_quantity = excluded.from_quantity,
				from_total = excluded.from_total,
				quantity = excluded.quantity,
				total = excluded.total`,
			r.id, r.institution, r.ticker,
			quantity(r.fromQuantity), money(r.fromTotal), quantity(r.quantity), money(r.total),
		)
		if err != nil {
			return fmt.Errorf("saving %s %s: %w", table, r.id, err)
		}
		written = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if written {
		d.logger.Debug().Str("table", table).Str("id", r.id).Str("institution", r.institution).Msg("registry row saved")
	}
	return written, nil
}

// sqlQuerier is implemented by *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *DB) BonusInfo(ctx context.Context, bonusID, institution string) (*irpf.BonusInfo, error) {
	r, err := d.registryRow(ctx, d.sql, "bonus_info", "bonus_id", bonusID, institution)
	if r == nil || err != nil {
		return nil, err
	}
	return &irpf.BonusInfo{
		BonusID:      r.id,
		Ticker:       r.ticker,
		Institution:  r.institution,
		FromQuantity: r.fromQuantity,
		FromTotal:    r.fromTotal,
		Quantity:     r.quantity,
		Total:        r.total,
	}, nil
}

func (d *DB) SaveBonusInfo(ctx context.Context, info irpf.BonusInfo) (bool, error) {
	r := registryRow{
		id:           info.BonusID,
		institution:  info.Institution,
		ticker:       info.Ticker,
		fromQuantity: info.FromQuantity,
		fromTotal:    info.FromTotal,
		quantity:     info.Quantity,
		total:        info.Total,
	}
	return d.saveRegistryRow(ctx, "bonus_info", "bonus_id", r, func(old registryRow) bool {
		return info.Equal(irpf.BonusInfo{
			BonusID:      old.id,
			Ticker:       old.ticker,
			Institution:  old.institution,
			FromQuantity: old.fromQuantity,
			FromTotal:    old.fromTotal,
			Quantity:     old.quantity,
			Total:        old.total,
		})
	})
}

func (d *DB) SubscriptionInfo(ctx context.Context, subscriptionID, institution string) (*irpf.SubscriptionInfo, error) {
	r, err := d.registryRow(ctx, d.sql, "subscription_info", "subscription_id", subscriptionID, institution)
	if r == nil || err != nil {
		return nil, err
	}
	return &irpf.SubscriptionInfo{
		SubscriptionID: r.id,
		Ticker:         r.ticker,
		Institution:    r.institution,
		FromQuantity:   r.fromQuantity,
		FromTotal:      r.fromTotal,
		Quantity:       r.quantity,
		Total:          r.total,
	}, nil
}

func (d *DB) SaveSubscriptionInfo(ctx context.Context, info irpf.SubscriptionInfo) (bool, error) {
	r := registryRow{
		id:           info.SubscriptionID,
		institution:  info.Institution,
		ticker:       info.Ticker,
		fromQuantity: info.FromQuantity,
		fromTotal:    info.FromTotal,
		quantity:     info.Quantity,
		total:        info.Total,
	}
	return d.saveRegistryRow(ctx, "subscription_info", "subscription_id", r, func(old registryRow) bool {
		return info.Equal(irpf.SubscriptionInfo{
			SubscriptionID: old.id,
			Ticker:         old.ticker,
			Institution:    old.institution,
			FromQuantity:   old.fromQuantity,
			FromTotal:      old.fromTotal,
			Quantity:       old.quantity,
			Total:          old.total,
		})
	})
}
