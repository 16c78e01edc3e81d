package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/summit-goods/commission-cli/internal/db"
	"github.com/summit-goods/commission-cli/internal/model"
)

// PostgresStore implements Store on PostgreSQL via pgx.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig tunes connection pool sizing.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"list_reps":       `SELECT id, sales_person, name, email, region, title, copper_user_id, is_active FROM reps`,
	"list_customers":  `SELECT doc_key, name, account_number, account_id, region, account_type, billing_address, billing_city, billing_state, billing_zip, shipping_address, shipping_city, shipping_state, ship_to_zip, shipping_country, sales_person, sales_rep_name, sales_rep_email, sales_rep_region, transfer_status, original_owner, fishbowl_username, copper_id, source FROM customers`,
	"list_orders":     `SELECT id, sales_order_id, so_number, num, customer_id, customer_num, account_number, customer_name, sales_person, sales_rep, order_date, commission_month, manually_linked FROM sales_orders WHERE commission_month = $1`,
	"list_line_items": `SELECT sales_order_id, so_item_id, line_item_id, legacy_id, product_num, quantity, unit_price, total_price FROM line_items WHERE sales_order_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., the CRM bulk importer).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reps (
	id              TEXT PRIMARY KEY,
	sales_person    TEXT NOT NULL DEFAULT '',
	name            TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	region          TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL DEFAULT '',
	copper_user_id  BIGINT NOT NULL DEFAULT 0,
	is_active       BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS crm_companies (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL DEFAULT '',
	account_order_id TEXT NOT NULL DEFAULT '',
	account_type    JSONB,
	account_id      TEXT NOT NULL DEFAULT '',
	region          TEXT NOT NULL DEFAULT '',
	street          TEXT NOT NULL DEFAULT '',
	city            TEXT NOT NULL DEFAULT '',
	state           TEXT NOT NULL DEFAULT '',
	postal_code     TEXT NOT NULL DEFAULT '',
	country         TEXT NOT NULL DEFAULT '',
	assignee_id     BIGINT NOT NULL DEFAULT 0,
	active_flag     JSONB,
	email_domain    TEXT NOT NULL DEFAULT '',
	date_modified   TIMESTAMPTZ,
	synced_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crm_companies_account_order_id ON crm_companies(account_order_id);

CREATE TABLE IF NOT EXISTS customers (
	doc_key           TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	account_number    TEXT NOT NULL DEFAULT '',
	account_id        TEXT NOT NULL DEFAULT '',
	region            TEXT NOT NULL DEFAULT '',
	account_type      TEXT NOT NULL DEFAULT '',
	billing_address   TEXT NOT NULL DEFAULT '',
	billing_city      TEXT NOT NULL DEFAULT '',
	billing_state     TEXT NOT NULL DEFAULT '',
	billing_zip       TEXT NOT NULL DEFAULT '',
	shipping_address  TEXT NOT NULL DEFAULT '',
	shipping_city     TEXT NOT NULL DEFAULT '',
	shipping_state    TEXT NOT NULL DEFAULT '',
	ship_to_zip       TEXT NOT NULL DEFAULT '',
	shipping_country  TEXT NOT NULL DEFAULT '',
	sales_person      TEXT NOT NULL DEFAULT '',
	sales_rep_name    TEXT NOT NULL DEFAULT '',
	sales_rep_email   TEXT NOT NULL DEFAULT '',
	sales_rep_region  TEXT NOT NULL DEFAULT '',
	transfer_status   TEXT NOT NULL DEFAULT '',
	original_owner    TEXT NOT NULL DEFAULT '',
	fishbowl_username TEXT NOT NULL DEFAULT '',
	copper_id         TEXT NOT NULL DEFAULT '',
	source            TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sales_orders (
	id              TEXT PRIMARY KEY,
	sales_order_id  TEXT NOT NULL DEFAULT '',
	so_number       TEXT NOT NULL DEFAULT '',
	num             TEXT NOT NULL DEFAULT '',
	customer_id     TEXT NOT NULL DEFAULT '',
	customer_num    TEXT NOT NULL DEFAULT '',
	account_number  TEXT NOT NULL DEFAULT '',
	customer_name   TEXT NOT NULL DEFAULT '',
	sales_person    TEXT NOT NULL DEFAULT '',
	sales_rep       TEXT NOT NULL DEFAULT '',
	order_date      TIMESTAMPTZ,
	commission_month TEXT NOT NULL DEFAULT '',
	manually_linked BOOLEAN NOT NULL DEFAULT false
);

CREATE INDEX IF NOT EXISTS idx_sales_orders_month ON sales_orders(commission_month);

CREATE TABLE IF NOT EXISTS line_items (
	seq            BIGSERIAL PRIMARY KEY,
	sales_order_id TEXT NOT NULL,
	so_item_id     TEXT NOT NULL DEFAULT '',
	line_item_id   TEXT NOT NULL DEFAULT '',
	legacy_id      TEXT NOT NULL DEFAULT '',
	product_num    TEXT NOT NULL DEFAULT '',
	quantity       NUMERIC NOT NULL DEFAULT 0,
	unit_price     NUMERIC NOT NULL DEFAULT 0,
	total_price    NUMERIC NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_line_items_sales_order_id ON line_items(sales_order_id);

CREATE TABLE IF NOT EXISTS commission_rates (
	title      TEXT NOT NULL,
	segment_id TEXT NOT NULL,
	status     TEXT NOT NULL,
	percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
	active     BOOLEAN NOT NULL DEFAULT true,
	PRIMARY KEY (title, segment_id, status)
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListReps(ctx context.Context) ([]model.Rep, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_reps"])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reps")
	}
	defer rows.Close()

	var reps []model.Rep
	for rows.Next() {
		var r model.Rep
		if err := rows.Scan(&r.ID, &r.SalesPersonKey, &r.Name, &r.Email, &r.Region, &r.Title, &r.CopperUserID, &r.IsActive); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rep")
		}
		reps = append(reps, r)
	}
	return reps, eris.Wrap(rows.Err(), "postgres: list reps")
}

func (s *PostgresStore) ListCrmCompanies(ctx context.Context) ([]model.CrmCompany, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, account_order_id, account_type, account_id, region, street, city, state, postal_code, country, assignee_id, active_flag, email_domain FROM crm_companies`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list crm companies")
	}
	defer rows.Close()

	var companies []model.CrmCompany
	for rows.Next() {
		var c model.CrmCompany
		var accountType, activeFlag []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.AccountOrderID, &accountType, &c.AccountID, &c.Region, &c.Street, &c.City, &c.State, &c.PostalCode, &c.Country, &c.AssigneeID, &activeFlag, &c.EmailDomain); err != nil {
			return nil, eris.Wrap(err, "postgres: scan crm company")
		}
		if len(accountType) > 0 {
			if err := json.Unmarshal(accountType, &c.AccountType); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode account_type for company %s", c.ID)
			}
		}
		if len(activeFlag) > 0 {
			if err := json.Unmarshal(activeFlag, &c.ActiveFlag); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode active_flag for company %s", c.ID)
			}
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list crm companies")
}

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_customers"])
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list customers")
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(
			&c.DocKey, &c.Name, &c.AccountNumber, &c.AccountID, &c.Region, &c.AccountType,
			&c.BillingAddress, &c.BillingCity, &c.BillingState, &c.BillingZip,
			&c.ShippingAddress, &c.ShippingCity, &c.ShippingState, &c.ShipToZip, &c.ShippingCountry,
			&c.SalesPerson, &c.SalesRepName, &c.SalesRepEmail, &c.SalesRepRegion,
			&c.TransferStatus, &c.OriginalOwner, &c.FishbowlUsername, &c.CopperID, &c.Source,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan customer")
		}
		customers = append(customers, c)
	}
	return customers, eris.Wrap(rows.Err(), "postgres: list customers")
}

func (s *PostgresStore) ListCommissionRates(ctx context.Context) ([]model.CommissionRate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title, segment_id, status, percentage, active FROM commission_rates`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list commission rates")
	}
	defer rows.Close()

	var rates []model.CommissionRate
	for rows.Next() {
		var r model.CommissionRate
		if err := rows.Scan(&r.Title, &r.SegmentID, &r.Status, &r.Percentage, &r.Active); err != nil {
			return nil, eris.Wrap(err, "postgres: scan commission rate")
		}
		rates = append(rates, r)
	}
	return rates, eris.Wrap(rows.Err(), "postgres: list commission rates")
}

func (s *PostgresStore) ListOrdersByMonth(ctx context.Context, commissionMonth string) ([]model.SalesOrder, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_orders"], commissionMonth)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list orders for %s", commissionMonth)
	}
	defer rows.Close()

	var orders []model.SalesOrder
	for rows.Next() {
		var o model.SalesOrder
		var orderDate *time.Time
		if err := rows.Scan(
			&o.ID, &o.SalesOrderID, &o.SONumber, &o.Num,
			&o.CustomerID, &o.CustomerNum, &o.AccountNumber, &o.CustomerName,
			&o.SalesPerson, &o.SalesRep, &orderDate, &o.CommissionMonth, &o.ManuallyLinked,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sales order")
		}
		if orderDate != nil {
			o.OrderDate = *orderDate
		}
		orders = append(orders, o)
	}
	return orders, eris.Wrapf(rows.Err(), "postgres: list orders for %s", commissionMonth)
}

func (s *PostgresStore) ListLineItems(ctx context.Context, salesOrderID string) ([]model.LineItem, error) {
	rows, err := s.pool.Query(ctx, preparedStatements["list_line_items"], salesOrderID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list line items for %s", salesOrderID)
	}
	defer rows.Close()

	var items []model.LineItem
	for rows.Next() {
		var li model.LineItem
		var qty, unit, total float64
		if err := rows.Scan(&li.SalesOrderID, &li.SOItemID, &li.LineItemID, &li.ID, &li.ProductNum, &qty, &unit, &total); err != nil {
			return nil, eris.Wrap(err, "postgres: scan line item")
		}
		li.Quantity = decimal.NewFromFloat(qty)
		li.UnitPrice = decimal.NewFromFloat(unit)
		li.TotalPrice = decimal.NewFromFloat(total)
		items = append(items, li)
	}
	return items, eris.Wrapf(rows.Err(), "postgres: list line items for %s", salesOrderID)
}

const customerInsert = `INSERT INTO customers (
	doc_key, name, account_number, account_id, region, account_type,
	billing_address, billing_city, billing_state, billing_zip,
	shipping_address, shipping_city, shipping_state, ship_to_zip, shipping_country,
	sales_person, sales_rep_name, sales_rep_email, sales_rep_region,
	copper_id, source, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, now(), now())
ON CONFLICT (doc_key) DO UPDATE SET
	name = EXCLUDED.name, account_number = EXCLUDED.account_number, account_id = EXCLUDED.account_id,
	region = EXCLUDED.region, account_type = EXCLUDED.account_type,
	billing_address = EXCLUDED.billing_address, billing_city = EXCLUDED.billing_city,
	billing_state = EXCLUDED.billing_state, billing_zip = EXCLUDED.billing_zip,
	shipping_address = EXCLUDED.shipping_address, shipping_city = EXCLUDED.shipping_city,
	shipping_state = EXCLUDED.shipping_state, ship_to_zip = EXCLUDED.ship_to_zip,
	shipping_country = EXCLUDED.shipping_country,
	sales_person = EXCLUDED.sales_person, sales_rep_name = EXCLUDED.sales_rep_name,
	sales_rep_email = EXCLUDED.sales_rep_email, sales_rep_region = EXCLUDED.sales_rep_region,
	copper_id = EXCLUDED.copper_id, source = EXCLUDED.source, updated_at = now()`

// ApplyCustomerWrites lands a batch of reconciliation writes. Each
// write succeeds or fails on its own; failures are returned, not
// raised, so one bad record cannot sink the batch.
func (s *PostgresStore) ApplyCustomerWrites(ctx context.Context, writes []CustomerWrite) []WriteError {
	var errs []WriteError
	for _, w := range writes {
		var err error
		if w.Create {
			err = s.createCustomer(ctx, w)
		} else {
			err = s.patchCustomer(ctx, w)
		}
		if err != nil {
			errs = append(errs, WriteError{DocKey: w.DocKey, Err: err})
		}
	}
	return errs
}

func (s *PostgresStore) createCustomer(ctx context.Context, w CustomerWrite) error {
	if w.Customer == nil {
		return eris.Errorf("postgres: create %s: no record", w.DocKey)
	}
	c := w.Customer
	_, err := s.pool.Exec(ctx, customerInsert,
		w.DocKey, c.Name, c.AccountNumber, c.AccountID, c.Region, c.AccountType,
		c.BillingAddress, c.BillingCity, c.BillingState, c.BillingZip,
		c.ShippingAddress, c.ShippingCity, c.ShippingState, c.ShipToZip, c.ShippingCountry,
		c.SalesPerson, c.SalesRepName, c.SalesRepEmail, c.SalesRepRegion,
		c.CopperID, c.Source,
	)
	return eris.Wrapf(err, "postgres: create customer %s", w.DocKey)
}

func (s *PostgresStore) patchCustomer(ctx context.Context, w CustomerWrite) error {
	if len(w.Fields) == 0 {
		return nil
	}

	// Deterministic column order keeps the generated SQL stable.
	names := make([]string, 0, len(w.Fields))
	for name := range w.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	setClauses := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		col, ok := customerColumns[name]
		if !ok {
			return eris.Errorf("postgres: patch %s: unknown field %q", w.DocKey, name)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, w.Fields[name])
	}
	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, w.DocKey)

	sql := fmt.Sprintf("UPDATE customers SET %s WHERE doc_key = $%d",
		strings.Join(setClauses, ", "), len(args))
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: patch customer %s", w.DocKey)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: patch customer %s: no such record", w.DocKey)
	}
	return nil
}
