package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/etnz/irpf"
	"github.com/google/uuid"
)

func (d *DB) Positions(ctx context.Context, on irpf.Date, c irpf.Consolidation, f irpf.Filter) ([]irpf.Position, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT ticker, institution, quantity, total, tax
		  FROM positions
		 WHERE date = ? AND consolidation = ? AND valid
		 ORDER BY ticker, institution`,
		date(on), int(c),
	)
	if err != nil {
		return nil, fmt.Errorf("querying positions: %w", err)
	}
	defer rows.Close()

	var list []irpf.Position
	for rows.Next() {
		var quantity, total, tax string
		p := irpf.Position{Date: on, Consolidation: c, IsValid: true}
		if err := rows.Scan(&p.Ticker, &p.Institution, &quantity, &total, &tax); err != nil {
			return nil, fmt.Errorf("scanning position: %w", err)
		}
		var r row
		p.Quantity, p.Total, p.Tax = r.quantity(quantity), r.money(total), r.money(tax)
		if r.err != nil {
			return nil, fmt.Errorf("position %s on %s: %w", p.Ticker, on, r.err)
		}
		if p.Quantity.IsZero() || !f.MatchTicker(p.Ticker, p.Institution) {
			continue
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (d *DB) SavePosition(ctx context.Context, p irpf.Position) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO positions (ticker, institution, date, consolidation, quantity, total, tax, valid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, institution, date, consolidation) DO UPDATE SET
			quantity = excluded.quantity,
			total = excluded.total,
			tax = excluded.tax,
			valid = excluded.valid`,
		p.Ticker, p.Institution, date(p.Date), int(p.Consolidation),
		quantity(p.Quantity), money(p.Total), money(p.Tax), p.IsValid,
	)
	if err != nil {
		return fmt.Errorf("saving position %s on %s: %w", p.Ticker, p.Date, err)
	}
	return nil
}

func (d *DB) InvalidatePositions(ctx context.Context, after irpf.Date, c irpf.Consolidation, f irpf.Filter) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT ticker, institution, date FROM positions
			 WHERE consolidation = ? AND date > ? AND valid`,
			int(c), date(after),
		)
		if err != nil {
			return fmt.Errorf("querying positions: %w", err)
		}
		type key struct{ ticker, institution, date string }
		var stale []key
		for rows.Next() {
			var k key
			if err := rows.Scan(&k.ticker, &k.institution, &k.date); err != nil {
				rows.Close()
				return fmt.Errorf("scanning position: %w", err)
			}
			if f.MatchTicker(k.ticker, k.institution) {
				stale = append(stale, k)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, k := range stale {
			_, err := tx.ExecContext(ctx, `
				UPDATE positions SET valid = FALSE
				 WHERE ticker = ? AND institution = ? AND date = ? AND consolidation = ?`,
				k.ticker, k.institution, k.date, int(c),
			)
			if err != nil {
				return fmt.Errorf("invalidating position %s on %s: %w", k.ticker, k.date, err)
			}
		}
		d.logger.Debug().Str("after", after.String()).Int("positions", len(stale)).Msg("positions invalidated")
		return nil
	})
}

func (d *DB) Statistic(ctx context.Context, on irpf.Date, c irpf.Consolidation, category irpf.Category, institution string) (*irpf.Statistic, error) {
	var losses, residual, patrimony string
	err := d.sql.QueryRowContext(ctx, `
		SELECT cumulative_losses, residual_taxes, patrimony
		  FROM statistics
		 WHERE category = ? AND institution = ? AND date = ? AND consolidation = ? AND valid`,
		category.Code(), institution, date(on), int(c),
	).Scan(&losses, &residual, &patrimony)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s statistic on %s: %w", category.Code(), on, err)
	}
	var r row
	s := &irpf.Statistic{
		Date:             on,
		Consolidation:    c,
		Category:         category,
		Institution:      institution,
		CumulativeLosses: r.money(losses),
		ResidualTaxes:    r.money(residual),
		Patrimony:        r.money(patrimony),
		IsValid:          true,
	}
	if r.err != nil {
		return nil, fmt.Errorf("%s statistic on %s: %w", category.Code(), on, r.err)
	}
	return s, nil
}

func (d *DB) SaveStatistic(ctx context.Context, s irpf.Statistic) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO statistics (category, institution, date, consolidation, cumulative_losses, residual_taxes, patrimony, valid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (category, institution, date, consolidation) DO UPDATE SET
			cumulative_losses = excluded.cumulative_losses,
			residual_taxes = excluded.residual_taxes,
			patrimony = excluded.patrimony,
			valid = excluded.valid`,
		s.Category.Code(), s.Institution, date(s.Date), int(s.Consolidation),
		money(s.CumulativeLosses), money(s.ResidualTaxes), money(s.Patrimony), s.IsValid,
	)
	if err != nil {
		return fmt.Errorf("saving %s statistic on %s: %w", s.Category.Code(), s.Date, err)
	}
	return nil
}

func (d *DB) InvalidateStatistics(ctx context.Context, after irpf.Date, c irpf.Consolidation, institution string) error {
	res, err := d.sql.ExecContext(ctx, `
		UPDATE statistics SET valid = FALSE
		 WHERE consolidation = ? AND date > ? AND institution = ? AND valid`,
		int(c), date(after), institution,
	)
	if err != nil {
		return fmt.Errorf("invalidating statistics after %s: %w", after, err)
	}
	if n, err := res.RowsAffected(); err == nil {
		d.logger.Debug().Str("after", after.String()).Int64("statistics", n).Msg("statistics invalidated")
	}
	return nil
}

const taxColumns = `id, date, category, ticker, total, rate, description, paid, paid_on`

func scanTax(rows *sql.Rows) (irpf.TaxRecord, error) {
	var t irpf.TaxRecord
	var on, category, total, rate, paidOn string
	if err := rows.Scan(&t.ID, &on, &category, &t.Ticker, &total, &rate, &t.Description, &t.Paid, &paidOn); err != nil {
		return t, fmt.Errorf("scanning tax: %w", err)
	}
	var r row
	t.Date, t.Category, t.Total, t.PaidOn = r.date(on), r.category(category), r.money(total), r.date(paidOn)
	t.Rate = r.money(rate).Decimal()
	if r.err != nil {
		return t, fmt.Errorf("tax %s: %w", t.ID, r.err)
	}
	return t, nil
}

func (d *DB) Taxes(ctx context.Context, rng irpf.Range, category irpf.Category) ([]irpf.TaxRecord, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT `+taxColumns+` FROM taxes
		 WHERE category = ? AND date BETWEEN ? AND ?
		 ORDER BY date, id`,
		category.Code(), date(rng.From), date(rng.To),
	)
	if err != nil {
		return nil, fmt.Errorf("querying taxes: %w", err)
	}
	defer rows.Close()

	var list []irpf.TaxRecord
	for rows.Next() {
		t, err := scanTax(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// AllTaxes returns the tax records of every category dated within rng.
func (d *DB) AllTaxes(ctx context.Context, rng irpf.Range) ([]irpf.TaxRecord, error) {
	var all []irpf.TaxRecord
	for _, c := range irpf.Categories() {
		list, err := d.Taxes(ctx, rng, c)
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
	}
	return all, nil
}

// AddTax stores a tax record, giving it a new id when it has none.
func (d *DB) AddTax(ctx context.Context, t irpf.TaxRecord) (irpf.TaxRecord, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO taxes (`+taxColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, date(t.Date), t.Category.Code(), t.Ticker, money(t.Total), t.Rate.String(), t.Description, t.Paid, date(t.PaidOn),
	)
	if err != nil {
		return t, fmt.Errorf("adding tax of %s: %w", t.Date, err)
	}
	return t, nil
}

// DeleteTax removes a tax record.
func (d *DB) DeleteTax(ctx context.Context, id string) error {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM taxes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting tax %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tax %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (d *DB) PayTaxes(ctx context.Context, ids []string, on irpf.Date) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `UPDATE taxes SET paid = TRUE, paid_on = ? WHERE id = ?`, date(on), id); err != nil {
				return fmt.Errorf("paying tax %s: %w", id, err)
			}
		}
		return nil
	})
}
