package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/summit-goods/commission-cli/internal/model"
)

// SQLiteStore implements Store on a local SQLite file. It exists for
// development and offline validation runs where Postgres is overkill.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if necessary) a SQLite database at path.
func NewSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: open %s", path)
	}
	// SQLite handles one writer at a time.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := sqlDB.ExecContext(ctx, pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reps (
	id             TEXT PRIMARY KEY,
	sales_person   TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL DEFAULT '',
	region         TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	copper_user_id INTEGER NOT NULL DEFAULT 0,
	is_active      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS crm_companies (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	account_order_id TEXT NOT NULL DEFAULT '',
	account_type     TEXT,
	account_id       TEXT NOT NULL DEFAULT '',
	region           TEXT NOT NULL DEFAULT '',
	street           TEXT NOT NULL DEFAULT '',
	city             TEXT NOT NULL DEFAULT '',
	state            TEXT NOT NULL DEFAULT '',
	postal_code      TEXT NOT NULL DEFAULT '',
	country          TEXT NOT NULL DEFAULT '',
	assignee_id      INTEGER NOT NULL DEFAULT 0,
	active_flag      TEXT,
	email_domain     TEXT NOT NULL DEFAULT '',
	date_modified    TEXT,
	synced_at        TEXT NOT NULL DEFAULT (datetime('now'))
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
	created_at        TEXT NOT NULL DEFAULT (datetime('now')),
	updated_at        TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS sales_orders (
	id               TEXT PRIMARY KEY,
	sales_order_id   TEXT NOT NULL DEFAULT '',
	so_number        TEXT NOT NULL DEFAULT '',
	num              TEXT NOT NULL DEFAULT '',
	customer_id      TEXT NOT NULL DEFAULT '',
	customer_num     TEXT NOT NULL DEFAULT '',
	account_number   TEXT NOT NULL DEFAULT '',
	customer_name    TEXT NOT NULL DEFAULT '',
	sales_person     TEXT NOT NULL DEFAULT '',
	sales_rep        TEXT NOT NULL DEFAULT '',
	order_date       TEXT,
	commission_month TEXT NOT NULL DEFAULT '',
	manually_linked  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sales_orders_month ON sales_orders(commission_month);

CREATE TABLE IF NOT EXISTS line_items (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	sales_order_id TEXT NOT NULL,
	so_item_id     TEXT NOT NULL DEFAULT '',
	line_item_id   TEXT NOT NULL DEFAULT '',
	legacy_id      TEXT NOT NULL DEFAULT '',
	product_num    TEXT NOT NULL DEFAULT '',
	quantity       REAL NOT NULL DEFAULT 0,
	unit_price     REAL NOT NULL DEFAULT 0,
	total_price    REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_line_items_sales_order_id ON line_items(sales_order_id);

CREATE TABLE IF NOT EXISTS commission_rates (
	title      TEXT NOT NULL,
	segment_id TEXT NOT NULL,
	status     TEXT NOT NULL,
	percentage REAL NOT NULL DEFAULT 0,
	active     INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (title, segment_id, status)
);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return eris.Wrap(s.db.Close(), "sqlite: close")
}

// DB exposes the raw handle for test fixtures.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) ListReps(ctx context.Context) ([]model.Rep, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sales_person, name, email, region, title, copper_user_id, is_active FROM reps`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reps")
	}
	defer rows.Close()

	var reps []model.Rep
	for rows.Next() {
		var r model.Rep
		if err := rows.Scan(&r.ID, &r.SalesPersonKey, &r.Name, &r.Email, &r.Region, &r.Title, &r.CopperUserID, &r.IsActive); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rep")
		}
		reps = append(reps, r)
	}
	return reps, eris.Wrap(rows.Err(), "sqlite: list reps")
}

func (s *SQLiteStore) ListCrmCompanies(ctx context.Context) ([]model.CrmCompany, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, account_order_id, account_type, account_id, region, street, city, state, postal_code, country, assignee_id, active_flag, email_domain FROM crm_companies`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list crm companies")
	}
	defer rows.Close()

	var companies []model.CrmCompany
	for rows.Next() {
		var c model.CrmCompany
		var accountType, activeFlag sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.AccountOrderID, &accountType, &c.AccountID, &c.Region, &c.Street, &c.City, &c.State, &c.PostalCode, &c.Country, &c.AssigneeID, &activeFlag, &c.EmailDomain); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan crm company")
		}
		if accountType.Valid && accountType.String != "" {
			if err := json.Unmarshal([]byte(accountType.String), &c.AccountType); err != nil {
				return nil, eris.Wrapf(err, "sqlite: decode account_type for company %s", c.ID)
			}
		}
		if activeFlag.Valid && activeFlag.String != "" {
			if err := json.Unmarshal([]byte(activeFlag.String), &c.ActiveFlag); err != nil {
				return nil, eris.Wrapf(err, "sqlite: decode active_flag for company %s", c.ID)
			}
		}
		companies = append(companies, c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list crm companies")
}

func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_key, name, account_number, account_id, region, account_type,
			billing_address, billing_city, billing_state, billing_zip,
			shipping_address, shipping_city, shipping_state, ship_to_zip, shipping_country,
			sales_person, sales_rep_name, sales_rep_email, sales_rep_region,
			transfer_status, original_owner, fishbowl_username, copper_id, source
		FROM customers`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list customers")
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
			return nil, eris.Wrap(err, "sqlite: scan customer")
		}
		customers = append(customers, c)
	}
	return customers, eris.Wrap(rows.Err(), "sqlite: list customers")
}

func (s *SQLiteStore) ListCommissionRates(ctx context.Context) ([]model.CommissionRate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, segment_id, status, percentage, active FROM commission_rates`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list commission rates")
	}
	defer rows.Close()

	var rates []model.CommissionRate
	for rows.Next() {
		var r model.CommissionRate
		if err := rows.Scan(&r.Title, &r.SegmentID, &r.Status, &r.Percentage, &r.Active); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan commission rate")
		}
		rates = append(rates, r)
	}
	return rates, eris.Wrap(rows.Err(), "sqlite: list commission rates")
}

func (s *SQLiteStore) ListOrdersByMonth(ctx context.Context, commissionMonth string) ([]model.SalesOrder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sales_order_id, so_number, num, customer_id, customer_num, account_number, customer_name, sales_person, sales_rep, order_date, commission_month, manually_linked
		FROM sales_orders WHERE commission_month = ?`, commissionMonth)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list orders for %s", commissionMonth)
	}
	defer rows.Close()

	var orders []model.SalesOrder
	for rows.Next() {
		var o model.SalesOrder
		var orderDate sql.NullString
		if err := rows.Scan(
			&o.ID, &o.SalesOrderID, &o.SONumber, &o.Num,
			&o.CustomerID, &o.CustomerNum, &o.AccountNumber, &o.CustomerName,
			&o.SalesPerson, &o.SalesRep, &orderDate, &o.CommissionMonth, &o.ManuallyLinked,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sales order")
		}
		if orderDate.Valid && orderDate.String != "" {
			t, err := time.Parse(time.RFC3339, orderDate.String)
			if err != nil {
				return nil, eris.Wrapf(err, "sqlite: parse order_date for order %s", o.ID)
			}
			o.OrderDate = t
		}
		orders = append(orders, o)
	}
	return orders, eris.Wrapf(rows.Err(), "sqlite: list orders for %s", commissionMonth)
}

func (s *SQLiteStore) ListLineItems(ctx context.Context, salesOrderID string) ([]model.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sales_order_id, so_item_id, line_item_id, legacy_id, product_num, quantity, unit_price, total_price
		FROM line_items WHERE sales_order_id = ?`, salesOrderID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list line items for %s", salesOrderID)
	}
	defer rows.Close()

	var items []model.LineItem
	for rows.Next() {
		var li model.LineItem
		var qty, unit, total float64
		if err := rows.Scan(&li.SalesOrderID, &li.SOItemID, &li.LineItemID, &li.ID, &li.ProductNum, &qty, &unit, &total); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan line item")
		}
		li.Quantity = decimal.NewFromFloat(qty)
		li.UnitPrice = decimal.NewFromFloat(unit)
		li.TotalPrice = decimal.NewFromFloat(total)
		items = append(items, li)
	}
	return items, eris.Wrapf(rows.Err(), "sqlite: list line items for %s", salesOrderID)
}

const sqliteCustomerInsert = `INSERT INTO customers (
	doc_key, name, account_number, account_id, region, account_type,
	billing_address, billing_city, billing_state, billing_zip,
	shipping_address, shipping_city, shipping_state, ship_to_zip, shipping_country,
	sales_person, sales_rep_name, sales_rep_email, sales_rep_region,
	copper_id, source
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (doc_key) DO UPDATE SET
	name = excluded.name, account_number = excluded.account_number, account_id = excluded.account_id,
	region = excluded.region, account_type = excluded.account_type,
	billing_address = excluded.billing_address, billing_city = excluded.billing_city,
	billing_state = excluded.billing_state, billing_zip = excluded.billing_zip,
	shipping_address = excluded.shipping_address, shipping_city = excluded.shipping_city,
	shipping_state = excluded.shipping_state, ship_to_zip = excluded.ship_to_zip,
	shipping_country = excluded.shipping_country,
	sales_person = excluded.sales_person, sales_rep_name = excluded.sales_rep_name,
	sales_rep_email = excluded.sales_rep_email, sales_rep_region = excluded.sales_rep_region,
	copper_id = excluded.copper_id, source = excluded.source, updated_at = datetime('now')`

func (s *SQLiteStore) ApplyCustomerWrites(ctx context.Context, writes []CustomerWrite) []WriteError {
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

func (s *SQLiteStore) createCustomer(ctx context.Context, w CustomerWrite) error {
	if w.Customer == nil {
		return eris.Errorf("sqlite: create %s: no record", w.DocKey)
	}
	c := w.Customer
	_, err := s.db.ExecContext(ctx, sqliteCustomerInsert,
		w.DocKey, c.Name, c.AccountNumber, c.AccountID, c.Region, c.AccountType,
		c.BillingAddress, c.BillingCity, c.BillingState, c.BillingZip,
		c.ShippingAddress, c.ShippingCity, c.ShippingState, c.ShipToZip, c.ShippingCountry,
		c.SalesPerson, c.SalesRepName, c.SalesRepEmail, c.SalesRepRegion,
		c.CopperID, c.Source,
	)
	return eris.Wrapf(err, "sqlite: create customer %s", w.DocKey)
}

func (s *SQLiteStore) patchCustomer(ctx context.Context, w CustomerWrite) error {
	if len(w.Fields) == 0 {
		return nil
	}

	names := make([]string, 0, len(w.Fields))
	for name := range w.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	setClauses := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		col, ok := customerColumns[name]
		if !ok {
			return eris.Errorf("sqlite: patch %s: unknown field %q", w.DocKey, name)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", col))
		args = append(args, w.Fields[name])
	}
	setClauses = append(setClauses, "updated_at = datetime('now')")
	args = append(args, w.DocKey)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE customers SET %s WHERE doc_key = ?", strings.Join(setClauses, ", ")),
		args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: patch customer %s", w.DocKey)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: patch customer %s", w.DocKey)
	}
	if n == 0 {
		return eris.Errorf("sqlite: patch customer %s: no such record", w.DocKey)
	}
	return nil
}
