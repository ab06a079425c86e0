package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/fundcore/internal/database"
	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned for unknown order or tick ids.
var ErrNotFound = errors.New("ledger record not found")

const ordersColumns = `id, fund_id, asset, side, strategy, status, quantity, filled_quantity, average_price, total_fees, error, created_at, updated_at`

// Repository reads and writes the ledger tables. It implements fund.Recorder.
type Repository struct {
	db     *sql.DB
	fundID string
	log    zerolog.Logger
}

var _ fund.Recorder = (*Repository)(nil)

// NewRepository creates a ledger repository for one fund.
func NewRepository(db *sql.DB, fundID string, log zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		fundID: fundID,
		log:    log.With().Str("repo", "ledger").Logger(),
	}
}

// Migrate creates the ledger tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return nil
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// RecordOrder upserts an order and replaces its fills.
func (r *Repository) RecordOrder(ctx context.Context, o execution.Order) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (`+ordersColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				filled_quantity = excluded.filled_quantity,
				average_price = excluded.average_price,
				total_fees = excluded.total_fees,
				error = excluded.error,
				updated_at = excluded.updated_at
		`,
			o.ID, r.fundID, o.Asset, string(o.Side), string(o.Strategy), string(o.Status),
			money(o.Quantity), money(o.FilledQuantity), money(o.AveragePrice), money(o.TotalFees),
			nullString(o.Error), o.CreatedAt.UnixMilli(), o.UpdatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM fills WHERE order_id = ?`, o.ID); err != nil {
			return fmt.Errorf("failed to clear fills: %w", err)
		}
		for i, f := range o.Fills {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO fills (order_id, seq, venue, slice, quantity, price, fee, gas_cost, executed_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, o.ID, i, f.Venue, f.Slice, money(f.Quantity), money(f.Price), money(f.Fee), money(f.GasCost), f.Timestamp.UnixMilli())
			if err != nil {
				return fmt.Errorf("failed to insert fill: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record order %s: %w", o.ID, err)
	}

	r.log.Debug().Str("order_id", o.ID).Str("status", string(o.Status)).Int("fills", len(o.Fills)).Msg("Order recorded")
	return nil
}

// GetOrder returns one order with its fills.
func (r *Repository) GetOrder(ctx context.Context, id string) (*OrderRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+ordersColumns+" FROM orders WHERE id = ?", id)
	rec, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if rec.Fills, err = r.fills(ctx, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Orders returns the fund's most recent orders, newest first, without fills.
func (r *Repository) Orders(ctx context.Context, limit int) ([]OrderRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ordersColumns+` FROM orders
		WHERE fund_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, r.fundID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	out := []OrderRecord{}
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return out, nil
}

// Fees totals fees across the fund's filled and partial orders.
func (r *Repository) Fees(ctx context.Context) (FeeSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT total_fees FROM orders
		WHERE fund_id = ? AND status IN ('filled', 'partial', 'cancelled')
	`, r.fundID)
	if err != nil {
		return FeeSummary{}, fmt.Errorf("failed to sum fees: %w", err)
	}
	defer rows.Close()

	summary := FeeSummary{TotalFees: decimal.Zero}
	for rows.Next() {
		var fee decimal.Decimal
		if err := rows.Scan(&fee); err != nil {
			return FeeSummary{}, fmt.Errorf("failed to scan fee: %w", err)
		}
		if fee.IsZero() {
			continue
		}
		summary.Orders++
		summary.TotalFees = summary.TotalFees.Add(fee)
	}
	if err := rows.Err(); err != nil {
		return FeeSummary{}, fmt.Errorf("error iterating fees: %w", err)
	}
	return summary, nil
}

func (r *Repository) fills(ctx context.Context, orderID string) ([]FillRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT venue, slice, quantity, price, fee, gas_cost, executed_at
		FROM fills WHERE order_id = ? ORDER BY seq
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fills: %w", err)
	}
	defer rows.Close()

	out := []FillRecord{}
	for rows.Next() {
		var f FillRecord
		var executedAt int64
		if err := rows.Scan(&f.Venue, &f.Slice, &f.Quantity, &f.Price, &f.Fee, &f.GasCost, &executedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fill: %w", err)
		}
		f.ExecutedAt = time.UnixMilli(executedAt).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (OrderRecord, error) {
	var rec OrderRecord
	var errText sql.NullString
	var createdAt, updatedAt int64
	err := s.Scan(&rec.ID, &rec.FundID, &rec.Asset, &rec.Side, &rec.Strategy, &rec.Status,
		&rec.Quantity, &rec.FilledQuantity, &rec.AveragePrice, &rec.TotalFees,
		&errText, &createdAt, &updatedAt)
	if err != nil {
		return rec, err
	}
	rec.Error = errText.String
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rec, nil
}

// RecordTick stores a tick summary and the msgpack-encoded report.
func (r *Repository) RecordTick(ctx context.Context, report fund.TickReport) error {
	blob, err := msgpack.Marshal(&report)
	if err != nil {
		return fmt.Errorf("failed to encode tick: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ticks
		(fund_id, sequence, started_at, state, violations, warnings, rebalanced,
		 emergency_stop, snapshot_version, var99, current_drawdown, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.FundID, int64(report.Sequence), report.StartedAt.UnixMilli(), string(report.State),
		len(report.Limits.Violations), len(report.Limits.Warnings),
		boolInt(report.Rebalance != nil), boolInt(report.EmergencyStop),
		int64(report.SnapshotVersion), report.Metrics.VaR99, report.Metrics.CurrentDrawdown, blob,
	)
	if err != nil {
		return fmt.Errorf("failed to record tick: %w", err)
	}
	return nil
}

// Ticks returns the most recent tick summaries, newest first.
func (r *Repository) Ticks(ctx context.Context, limit int) ([]TickRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, fund_id, sequence, started_at, state, violations, warnings,
		       rebalanced, emergency_stop, snapshot_version, var99, current_drawdown
		FROM ticks WHERE fund_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, r.fundID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticks: %w", err)
	}
	defer rows.Close()

	out := []TickRecord{}
	for rows.Next() {
		var t TickRecord
		var seq, version, startedAt int64
		var rebalanced, emergency int
		if err := rows.Scan(&t.ID, &t.FundID, &seq, &startedAt, &t.State, &t.Violations, &t.Warnings,
			&rebalanced, &emergency, &version, &t.VaR99, &t.CurrentDrawdown); err != nil {
			return nil, fmt.Errorf("failed to scan tick: %w", err)
		}
		t.Sequence = uint64(seq)
		t.SnapshotVersion = uint64(version)
		t.StartedAt = time.UnixMilli(startedAt).UTC()
		t.Rebalanced = rebalanced != 0
		t.EmergencyStop = emergency != 0
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticks: %w", err)
	}
	return out, nil
}

// TickReport decodes the full report stored for a tick id.
func (r *Repository) TickReport(ctx context.Context, id int64) (fund.TickReport, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT report FROM ticks WHERE id = ? AND fund_id = ?`, id, r.fundID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return fund.TickReport{}, fmt.Errorf("tick %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fund.TickReport{}, fmt.Errorf("failed to get tick: %w", err)
	}

	var report fund.TickReport
	if err := msgpack.Unmarshal(blob, &report); err != nil {
		return fund.TickReport{}, fmt.Errorf("failed to decode tick %d: %w", id, err)
	}
	return report, nil
}

// RecordEvent stores one compliance event. Re-recording an id is a no-op.
func (r *Repository) RecordEvent(ctx context.Context, e events.Event) error {
	var data []byte
	if len(e.Data) > 0 {
		var err error
		if data, err = msgpack.Marshal(e.Data); err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO events (id, type, category, severity, source, message, data, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Type), string(e.Category), string(e.Severity), e.Source, e.Message, data, e.Timestamp.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Events returns the most recent events, newest first. An empty category or
// events.CategoryAll returns every category.
func (r *Repository) Events(ctx context.Context, category events.Category, limit int) ([]events.Event, error) {
	query := `SELECT id, type, category, severity, source, message, data, timestamp FROM events`
	args := []any{}
	if category != "" && category != events.CategoryAll {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY timestamp DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	out := []events.Event{}
	for rows.Next() {
		var e events.Event
		var typ, cat, sev string
		var data []byte
		var ts int64
		if err := rows.Scan(&e.ID, &typ, &cat, &sev, &e.Source, &e.Message, &data, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = events.EventType(typ)
		e.Category = events.Category(cat)
		e.Severity = events.Severity(sev)
		e.Timestamp = time.UnixMilli(ts).UTC()
		if len(data) > 0 {
			if err := msgpack.Unmarshal(data, &e.Data); err != nil {
				return nil, fmt.Errorf("failed to decode event %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return out, nil
}

// Attach persists every event published on bus until the subscription is
// cancelled.
func (r *Repository) Attach(bus *events.Bus) *events.Subscription {
	return bus.Subscribe(events.CategoryAll, "ledger", func(e events.Event) {
		if err := r.RecordEvent(context.Background(), e); err != nil {
			r.log.Warn().Err(err).Str("event_id", e.ID).Msg("Failed to persist event")
		}
	})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
