package order

import (
	"database/sql"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	createOrdersTable = `
		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			razorpay_order_id TEXT NOT NULL UNIQUE,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			customer_details JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL,
			payment_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	orderColumns = `id, razorpay_order_id, amount, currency, customer_details, status, payment_id, created_at, updated_at`

	insertOrderQuery = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`
	getByGatewayIDQuery = `SELECT ` + orderColumns + ` FROM orders WHERE razorpay_order_id = $1`
	markPaidQuery       = `
		UPDATE orders
		SET status = $2, payment_id = $3, updated_at = $4
		WHERE razorpay_order_id = $1 AND status <> $2
		RETURNING ` + orderColumns
	listOrdersQuery = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the orders table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema() error {
	_, err := r.db.Exec(createOrdersTable)
	return err
}

func (r *PostgresRepository) Create(ord Order) (Order, error) {
	customerJSON, err := json.Marshal(ord.Customer)
	if err != nil {
		return Order{}, err
	}
	_, err = r.db.Exec(insertOrderQuery,
		ord.ID, ord.GatewayOrderID, ord.Amount, ord.Currency, customerJSON,
		string(ord.Status), ord.PaymentID, ord.CreatedAt, ord.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) GetByGatewayOrderID(gatewayOrderID string) (Order, error) {
	ord, err := scanOrder(r.db.QueryRow(getByGatewayIDQuery, gatewayOrderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return ord, nil
}

func (r *PostgresRepository) MarkPaid(gatewayOrderID, paymentID string, at time.Time) (Order, error) {
	ord, err := scanOrder(r.db.QueryRow(markPaidQuery, gatewayOrderID, string(StatusPaid), paymentID, at))
	if err == nil {
		return ord, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Order{}, err
	}

	// either unknown or already paid
	existing, err := r.GetByGatewayOrderID(gatewayOrderID)
	if err != nil {
		return Order{}, err
	}
	if existing.PaymentID != paymentID {
		return Order{}, ErrAlreadyPaid
	}
	return existing, nil
}

func (r *PostgresRepository) List() ([]Order, error) {
	rows, err := r.db.Query(listOrdersQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (Order, error) {
	var (
		ord          Order
		customerJSON []byte
		status       string
	)
	if err := s.Scan(&ord.ID, &ord.GatewayOrderID, &ord.Amount, &ord.Currency, &customerJSON,
		&status, &ord.PaymentID, &ord.CreatedAt, &ord.UpdatedAt); err != nil {
		return Order{}, err
	}
	ord.Status = Status(status)
	if len(customerJSON) > 0 {
		if err := json.Unmarshal(customerJSON, &ord.Customer); err != nil {
			return Order{}, err
		}
	}
	return ord, nil
}
