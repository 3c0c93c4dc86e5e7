// Package postgres implements the Repository on a postgres database via
// pgxpool. Monetary columns are NUMERIC(12,2) and travel as text so decimal
// values never pass through a float.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"metyme/backend/internal/billing"
	"metyme/backend/internal/domain"
	"metyme/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id            TEXT PRIMARY KEY,
    branch_id     TEXT NOT NULL,
    customer_name TEXT NOT NULL,
    seat          TEXT NOT NULL,
    category      TEXT NOT NULL,
    rate_per_hour NUMERIC(12,2) NOT NULL,
    down_payment  NUMERIC(12,2) NOT NULL DEFAULT 0,
    discount_kind TEXT NOT NULL DEFAULT 'none',
    discount_value NUMERIC(12,2) NOT NULL DEFAULT 0,
    time_charge   NUMERIC(12,2) NOT NULL DEFAULT 0,
    total         NUMERIC(12,2) NOT NULL DEFAULT 0,
    cash_paid     NUMERIC(12,2) NOT NULL DEFAULT 0,
    ewallet_paid  NUMERIC(12,2) NOT NULL DEFAULT 0,
    paid          BOOLEAN NOT NULL DEFAULT FALSE,
    paid_at       TIMESTAMPTZ,
    status        TEXT NOT NULL,
    void_reason   TEXT NOT NULL DEFAULT '',
    notes         TEXT NOT NULL DEFAULT '',
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_sessions_branch_day ON sessions (branch_id, started_at);

CREATE TABLE IF NOT EXISTS addon_sales (
    id            TEXT PRIMARY KEY,
    branch_id     TEXT NOT NULL,
    customer_name TEXT NOT NULL,
    seat          TEXT NOT NULL,
    item_name     TEXT NOT NULL,
    qty           INTEGER NOT NULL,
    unit_price    NUMERIC(12,2) NOT NULL,
    total         NUMERIC(12,2) NOT NULL,
    cash_paid     NUMERIC(12,2) NOT NULL DEFAULT 0,
    ewallet_paid  NUMERIC(12,2) NOT NULL DEFAULT 0,
    paid          BOOLEAN NOT NULL DEFAULT FALSE,
    paid_at       TIMESTAMPTZ,
    status        TEXT NOT NULL,
    void_reason   TEXT NOT NULL DEFAULT '',
    sold_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_addon_sales_branch_day ON addon_sales (branch_id, sold_at);

CREATE TABLE IF NOT EXISTS consignment_items (
    id            TEXT PRIMARY KEY,
    supplier_name TEXT NOT NULL,
    item_name     TEXT NOT NULL,
    price         NUMERIC(12,2) NOT NULL,
    fee_rate      NUMERIC(6,4) NOT NULL,
    stock         INTEGER NOT NULL CHECK (stock >= 0),
    active        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS consignment_sales (
    id            TEXT PRIMARY KEY,
    branch_id     TEXT NOT NULL,
    item_id       TEXT NOT NULL REFERENCES consignment_items (id),
    item_name     TEXT NOT NULL,
    supplier_name TEXT NOT NULL,
    customer_name TEXT NOT NULL,
    seat          TEXT NOT NULL,
    qty           INTEGER NOT NULL,
    unit_price    NUMERIC(12,2) NOT NULL,
    total         NUMERIC(12,2) NOT NULL,
    fee_amount    NUMERIC(12,2) NOT NULL,
    cash_paid     NUMERIC(12,2) NOT NULL DEFAULT 0,
    ewallet_paid  NUMERIC(12,2) NOT NULL DEFAULT 0,
    paid          BOOLEAN NOT NULL DEFAULT FALSE,
    paid_at       TIMESTAMPTZ,
    status        TEXT NOT NULL,
    void_reason   TEXT NOT NULL DEFAULT '',
    sold_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consignment_sales_branch_day ON consignment_sales (branch_id, sold_at);

CREATE TABLE IF NOT EXISTS bookings (
    id             TEXT PRIMARY KEY,
    reference      TEXT NOT NULL UNIQUE,
    customer_name  TEXT NOT NULL,
    package_name   TEXT NOT NULL,
    total_attempts INTEGER NOT NULL,
    used_attempts  INTEGER NOT NULL DEFAULT 0,
    valid_from     TIMESTAMPTZ NOT NULL,
    valid_until    TIMESTAMPTZ NOT NULL,
    price          NUMERIC(12,2) NOT NULL,
    down_payment   NUMERIC(12,2) NOT NULL DEFAULT 0,
    discount_kind  TEXT NOT NULL DEFAULT 'none',
    discount_value NUMERIC(12,2) NOT NULL DEFAULT 0,
    total          NUMERIC(12,2) NOT NULL,
    cash_paid      NUMERIC(12,2) NOT NULL DEFAULT 0,
    ewallet_paid   NUMERIC(12,2) NOT NULL DEFAULT 0,
    paid           BOOLEAN NOT NULL DEFAULT FALSE,
    paid_at        TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id          TEXT PRIMARY KEY,
    staff_name  TEXT NOT NULL,
    category    TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    amount      NUMERIC(12,2) NOT NULL,
    recorded_by TEXT NOT NULL,
    spent_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    username   TEXT PRIMARY KEY,
    password   TEXT NOT NULL,
    role       TEXT NOT NULL,
    active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
    id             TEXT PRIMARY KEY,
    branch_id      TEXT NOT NULL,
    actor_username TEXT NOT NULL,
    actor_role     TEXT NOT NULL,
    action         TEXT NOT NULL,
    entity_type    TEXT NOT NULL,
    entity_id      TEXT NOT NULL,
    detail         TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL
);
`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func scanDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("scan numeric %q: %w", raw, err)
	}
	return d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (
			id, branch_id, customer_name, seat, category, rate_per_hour,
			down_payment, discount_kind, discount_value, time_charge, total,
			cash_paid, ewallet_paid, paid, paid_at, status, void_reason,
			notes, started_at, ended_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		sess.ID, sess.BranchID, sess.CustomerName, sess.Seat, sess.Category,
		money(sess.RatePerHour), money(sess.DownPayment),
		string(sess.Discount.Kind), money(sess.Discount.Value),
		money(sess.TimeCharge), money(sess.Total),
		money(sess.CashPaid), money(sess.EwalletPaid),
		sess.Paid, sess.PaidAt, sess.Status, sess.VoidReason, sess.Notes,
		sess.StartedAt, sess.EndedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

const sessionColumns = `
	id, branch_id, customer_name, seat, category,
	rate_per_hour::text, down_payment::text, discount_kind, discount_value::text,
	time_charge::text, total::text, cash_paid::text, ewallet_paid::text,
	paid, paid_at, status, void_reason, notes, started_at, ended_at`

func scanSession(row pgx.Row) (domain.Session, error) {
	var sess domain.Session
	var rate, down, dval, charge, total, cash, ewallet, kind string
	err := row.Scan(&sess.ID, &sess.BranchID, &sess.CustomerName, &sess.Seat,
		&sess.Category, &rate, &down, &kind, &dval, &charge, &total,
		&cash, &ewallet, &sess.Paid, &sess.PaidAt, &sess.Status,
		&sess.VoidReason, &sess.Notes, &sess.StartedAt, &sess.EndedAt)
	if err != nil {
		return domain.Session{}, err
	}
	sess.Discount.Kind = billing.DiscountKind(kind)
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{rate, &sess.RatePerHour}, {down, &sess.DownPayment},
		{dval, &sess.Discount.Value}, {charge, &sess.TimeCharge},
		{total, &sess.Total}, {cash, &sess.CashPaid}, {ewallet, &sess.EwalletPaid},
	} {
		d, err := scanDecimal(field.raw)
		if err != nil {
			return domain.Session{}, err
		}
		*field.dst = d
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, store.ErrNotFound
	}
	return sess, err
}

func (s *Store) UpdateSession(ctx context.Context, sess domain.Session) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET
			customer_name = $2, seat = $3, category = $4, rate_per_hour = $5,
			down_payment = $6, discount_kind = $7, discount_value = $8,
			time_charge = $9, total = $10, cash_paid = $11, ewallet_paid = $12,
			paid = $13, paid_at = $14, status = $15, void_reason = $16,
			notes = $17, ended_at = $18
		WHERE id = $1`,
		sess.ID, sess.CustomerName, sess.Seat, sess.Category,
		money(sess.RatePerHour), money(sess.DownPayment),
		string(sess.Discount.Kind), money(sess.Discount.Value),
		money(sess.TimeCharge), money(sess.Total),
		money(sess.CashPaid), money(sess.EwalletPaid),
		sess.Paid, sess.PaidAt, sess.Status, sess.VoidReason, sess.Notes, sess.EndedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, branchID string, day time.Time, status string) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	args := []any{}
	if branchID != "" {
		args = append(args, branchID)
		query += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if !day.IsZero() {
		args = append(args, day, day.AddDate(0, 0, 1))
		query += fmt.Sprintf(" AND started_at >= $%d AND started_at < $%d", len(args)-1, len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY started_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) CreateAddOnSale(ctx context.Context, sale domain.AddOnSale) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO addon_sales (
			id, branch_id, customer_name, seat, item_name, qty, unit_price,
			total, cash_paid, ewallet_paid, paid, paid_at, status, void_reason, sold_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		sale.ID, sale.BranchID, sale.CustomerName, sale.Seat, sale.ItemName,
		sale.Qty, money(sale.UnitPrice), money(sale.Total),
		money(sale.CashPaid), money(sale.EwalletPaid),
		sale.Paid, sale.PaidAt, sale.Status, sale.VoidReason, sale.SoldAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

const addOnColumns = `
	id, branch_id, customer_name, seat, item_name, qty,
	unit_price::text, total::text, cash_paid::text, ewallet_paid::text,
	paid, paid_at, status, void_reason, sold_at`

func scanAddOnSale(row pgx.Row) (domain.AddOnSale, error) {
	var sale domain.AddOnSale
	var unit, total, cash, ewallet string
	err := row.Scan(&sale.ID, &sale.BranchID, &sale.CustomerName, &sale.Seat,
		&sale.ItemName, &sale.Qty, &unit, &total, &cash, &ewallet,
		&sale.Paid, &sale.PaidAt, &sale.Status, &sale.VoidReason, &sale.SoldAt)
	if err != nil {
		return domain.AddOnSale{}, err
	}
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{unit, &sale.UnitPrice}, {total, &sale.Total},
		{cash, &sale.CashPaid}, {ewallet, &sale.EwalletPaid},
	} {
		d, err := scanDecimal(field.raw)
		if err != nil {
			return domain.AddOnSale{}, err
		}
		*field.dst = d
	}
	return sale, nil
}

func (s *Store) GetAddOnSale(ctx context.Context, id string) (domain.AddOnSale, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+addOnColumns+` FROM addon_sales WHERE id = $1`, id)
	sale, err := scanAddOnSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AddOnSale{}, store.ErrNotFound
	}
	return sale, err
}

func (s *Store) UpdateAddOnSale(ctx context.Context, sale domain.AddOnSale) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE addon_sales SET
			cash_paid = $2, ewallet_paid = $3, paid = $4, paid_at = $5,
			status = $6, void_reason = $7
		WHERE id = $1`,
		sale.ID, money(sale.CashPaid), money(sale.EwalletPaid),
		sale.Paid, sale.PaidAt, sale.Status, sale.VoidReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListAddOnSales(ctx context.Context, branchID string, day time.Time) ([]domain.AddOnSale, error) {
	query := `SELECT ` + addOnColumns + ` FROM addon_sales WHERE 1=1`
	args := []any{}
	if branchID != "" {
		args = append(args, branchID)
		query += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if !day.IsZero() {
		args = append(args, day, day.AddDate(0, 0, 1))
		query += fmt.Sprintf(" AND sold_at >= $%d AND sold_at < $%d", len(args)-1, len(args))
	}
	query += " ORDER BY sold_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AddOnSale, 0)
	for rows.Next() {
		sale, err := scanAddOnSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

const consignmentItemColumns = `
	id, supplier_name, item_name, price::text, fee_rate::text, stock, active, created_at`

func scanConsignmentItem(row pgx.Row) (domain.ConsignmentItem, error) {
	var it domain.ConsignmentItem
	var price, rate string
	err := row.Scan(&it.ID, &it.SupplierName, &it.ItemName, &price, &rate,
		&it.Stock, &it.Active, &it.CreatedAt)
	if err != nil {
		return domain.ConsignmentItem{}, err
	}
	if it.Price, err = scanDecimal(price); err != nil {
		return domain.ConsignmentItem{}, err
	}
	if it.FeeRate, err = scanDecimal(rate); err != nil {
		return domain.ConsignmentItem{}, err
	}
	return it, nil
}

func (s *Store) CreateConsignmentItem(ctx context.Context, it domain.ConsignmentItem) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO consignment_items (
			id, supplier_name, item_name, price, fee_rate, stock, active, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		it.ID, it.SupplierName, it.ItemName, money(it.Price),
		it.FeeRate.String(), it.Stock, it.Active, it.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) GetConsignmentItem(ctx context.Context, id string) (domain.ConsignmentItem, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+consignmentItemColumns+` FROM consignment_items WHERE id = $1`, id)
	it, err := scanConsignmentItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ConsignmentItem{}, store.ErrNotFound
	}
	return it, err
}

func (s *Store) UpdateConsignmentItem(ctx context.Context, it domain.ConsignmentItem) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE consignment_items SET
			item_name = $2, price = $3, fee_rate = $4, stock = $5, active = $6
		WHERE id = $1`,
		it.ID, it.ItemName, money(it.Price), it.FeeRate.String(), it.Stock, it.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListConsignmentItems(ctx context.Context, activeOnly bool) ([]domain.ConsignmentItem, error) {
	query := `SELECT ` + consignmentItemColumns + ` FROM consignment_items`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY supplier_name, item_name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ConsignmentItem, 0)
	for rows.Next() {
		it, err := scanConsignmentItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// AdjustConsignmentStock relies on the stock >= 0 check constraint so two
// concurrent sales cannot both take the last unit.
func (s *Store) AdjustConsignmentStock(ctx context.Context, id string, delta int) (domain.ConsignmentItem, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE consignment_items SET stock = stock + $2
		WHERE id = $1
		RETURNING `+consignmentItemColumns, id, delta)
	it, err := scanConsignmentItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ConsignmentItem{}, store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" {
		return domain.ConsignmentItem{}, store.ErrInsufficientStock
	}
	return it, err
}

func (s *Store) CreateConsignmentSale(ctx context.Context, sale domain.ConsignmentSale) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO consignment_sales (
			id, branch_id, item_id, item_name, supplier_name, customer_name,
			seat, qty, unit_price, total, fee_amount, cash_paid, ewallet_paid,
			paid, paid_at, status, void_reason, sold_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		sale.ID, sale.BranchID, sale.ItemID, sale.ItemName, sale.SupplierName,
		sale.CustomerName, sale.Seat, sale.Qty, money(sale.UnitPrice),
		money(sale.Total), money(sale.FeeAmount),
		money(sale.CashPaid), money(sale.EwalletPaid),
		sale.Paid, sale.PaidAt, sale.Status, sale.VoidReason, sale.SoldAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

const consignmentSaleColumns = `
	id, branch_id, item_id, item_name, supplier_name, customer_name, seat, qty,
	unit_price::text, total::text, fee_amount::text, cash_paid::text, ewallet_paid::text,
	paid, paid_at, status, void_reason, sold_at`

func scanConsignmentSale(row pgx.Row) (domain.ConsignmentSale, error) {
	var sale domain.ConsignmentSale
	var unit, total, fee, cash, ewallet string
	err := row.Scan(&sale.ID, &sale.BranchID, &sale.ItemID, &sale.ItemName,
		&sale.SupplierName, &sale.CustomerName, &sale.Seat, &sale.Qty,
		&unit, &total, &fee, &cash, &ewallet,
		&sale.Paid, &sale.PaidAt, &sale.Status, &sale.VoidReason, &sale.SoldAt)
	if err != nil {
		return domain.ConsignmentSale{}, err
	}
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{unit, &sale.UnitPrice}, {total, &sale.Total}, {fee, &sale.FeeAmount},
		{cash, &sale.CashPaid}, {ewallet, &sale.EwalletPaid},
	} {
		d, err := scanDecimal(field.raw)
		if err != nil {
			return domain.ConsignmentSale{}, err
		}
		*field.dst = d
	}
	return sale, nil
}

func (s *Store) GetConsignmentSale(ctx context.Context, id string) (domain.ConsignmentSale, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+consignmentSaleColumns+` FROM consignment_sales WHERE id = $1`, id)
	sale, err := scanConsignmentSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ConsignmentSale{}, store.ErrNotFound
	}
	return sale, err
}

func (s *Store) UpdateConsignmentSale(ctx context.Context, sale domain.ConsignmentSale) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE consignment_sales SET
			cash_paid = $2, ewallet_paid = $3, paid = $4, paid_at = $5,
			status = $6, void_reason = $7
		WHERE id = $1`,
		sale.ID, money(sale.CashPaid), money(sale.EwalletPaid),
		sale.Paid, sale.PaidAt, sale.Status, sale.VoidReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListConsignmentSales(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.ConsignmentSale, error) {
	query := `SELECT ` + consignmentSaleColumns + ` FROM consignment_sales WHERE 1=1`
	args := []any{}
	if branchID != "" {
		args = append(args, branchID)
		query += fmt.Sprintf(" AND branch_id = $%d", len(args))
	}
	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND sold_at >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND sold_at < $%d", len(args))
	}
	query += " ORDER BY sold_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ConsignmentSale, 0)
	for rows.Next() {
		sale, err := scanConsignmentSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

func (s *Store) CreateBooking(ctx context.Context, b domain.PromoBooking) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bookings (
			id, reference, customer_name, package_name, total_attempts,
			used_attempts, valid_from, valid_until, price, down_payment,
			discount_kind, discount_value, total, cash_paid, ewallet_paid,
			paid, paid_at, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		b.ID, b.Reference, b.CustomerName, b.PackageName, b.TotalAttempts,
		b.UsedAttempts, b.ValidFrom, b.ValidUntil, money(b.Price),
		money(b.DownPayment), string(b.Discount.Kind), money(b.Discount.Value),
		money(b.Total), money(b.CashPaid), money(b.EwalletPaid),
		b.Paid, b.PaidAt, b.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

const bookingColumns = `
	id, reference, customer_name, package_name, total_attempts, used_attempts,
	valid_from, valid_until, price::text, down_payment::text,
	discount_kind, discount_value::text, total::text, cash_paid::text, ewallet_paid::text,
	paid, paid_at, created_at`

func scanBooking(row pgx.Row) (domain.PromoBooking, error) {
	var b domain.PromoBooking
	var price, down, dval, total, cash, ewallet, kind string
	err := row.Scan(&b.ID, &b.Reference, &b.CustomerName, &b.PackageName,
		&b.TotalAttempts, &b.UsedAttempts, &b.ValidFrom, &b.ValidUntil,
		&price, &down, &kind, &dval, &total, &cash, &ewallet,
		&b.Paid, &b.PaidAt, &b.CreatedAt)
	if err != nil {
		return domain.PromoBooking{}, err
	}
	b.Discount.Kind = billing.DiscountKind(kind)
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{price, &b.Price}, {down, &b.DownPayment}, {dval, &b.Discount.Value},
		{total, &b.Total}, {cash, &b.CashPaid}, {ewallet, &b.EwalletPaid},
	} {
		d, err := scanDecimal(field.raw)
		if err != nil {
			return domain.PromoBooking{}, err
		}
		*field.dst = d
	}
	return b, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (domain.PromoBooking, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PromoBooking{}, store.ErrNotFound
	}
	return b, err
}

func (s *Store) GetBookingByReference(ctx context.Context, ref string) (domain.PromoBooking, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE lower(reference) = lower($1)`, ref)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PromoBooking{}, store.ErrNotFound
	}
	return b, err
}

func (s *Store) UpdateBooking(ctx context.Context, b domain.PromoBooking) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bookings SET
			used_attempts = $2, cash_paid = $3, ewallet_paid = $4,
			paid = $5, paid_at = $6
		WHERE id = $1`,
		b.ID, b.UsedAttempts, money(b.CashPaid), money(b.EwalletPaid), b.Paid, b.PaidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListBookings(ctx context.Context) ([]domain.PromoBooking, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.PromoBooking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, e domain.Expense) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO expenses (id, staff_name, category, description, amount, recorded_by, spent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.StaffName, e.Category, e.Description, money(e.Amount), e.RecordedBy, e.SpentAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) ListExpenses(ctx context.Context, day time.Time) ([]domain.Expense, error) {
	query := `SELECT id, staff_name, category, description, amount::text, recorded_by, spent_at FROM expenses`
	args := []any{}
	if !day.IsZero() {
		args = append(args, day, day.AddDate(0, 0, 1))
		query += " WHERE spent_at >= $1 AND spent_at < $2"
	}
	query += " ORDER BY spent_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Expense, 0)
	for rows.Next() {
		var e domain.Expense
		var amount string
		if err := rows.Scan(&e.ID, &e.StaffName, &e.Category, &e.Description,
			&amount, &e.RecordedBy, &e.SpentAt); err != nil {
			return nil, err
		}
		if e.Amount, err = scanDecimal(amount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, u domain.UserAccount) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES (lower($1),$2,$3,$4,$5)`,
		u.Username, u.Password, u.Role, u.Active, u.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, username string) (domain.UserAccount, error) {
	var u domain.UserAccount
	err := s.pool.QueryRow(ctx, `
		SELECT username, password, role, active, created_at
		FROM users WHERE username = lower($1)`, username).
		Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT username, password, role, active, created_at
		FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.UserAccount, 0)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) AppendAudit(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (
			id, branch_id, actor_username, actor_role, action,
			entity_type, entity_id, detail, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		entry.ID, entry.BranchID, entry.ActorUsername, entry.ActorRole,
		entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}
