package product

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	createProductsTable = `
		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(12,2) NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			features TEXT[] NOT NULL DEFAULT '{}',
			stock INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	listProductsQuery = `
		SELECT id, name, description, price, image_url, features, stock
		FROM products
		ORDER BY created_at, id
	`
	getProductByIDQuery = `
		SELECT id, name, description, price, image_url, features, stock
		FROM products
		WHERE id = $1
	`
	countProductsQuery = `SELECT COUNT(*) FROM products`
	insertProductQuery = `
		INSERT INTO products (id, name, description, price, image_url, features, stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`
	deleteProductsQuery = `DELETE FROM products`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the products table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema() error {
	_, err := r.db.Exec(createProductsTable)
	return err
}

func (r *PostgresRepository) List() ([]Product, error) {
	rows, err := r.db.Query(listProductsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(id string) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(getProductByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(countProductsQuery).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Reset deletes every product and inserts the given list in one transaction.
func (r *PostgresRepository) Reset(products []Product) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(deleteProductsQuery); err != nil {
		return err
	}
	for _, p := range products {
		if _, err := tx.Exec(insertProductQuery, p.ID, p.Name, p.Description, p.Price, p.ImageURL, pq.Array(p.Features), p.Stock); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (Product, error) {
	var (
		p        Product
		features []string
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, pq.Array(&features), &p.Stock); err != nil {
		return Product{}, err
	}
	if features == nil {
		features = []string{}
	}
	p.Features = features
	return p, nil
}
