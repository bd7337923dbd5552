package product

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

var productColumns = []string{"id", "name", "description", "price", "image_url", "features", "stock"}

func TestList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	rows := sqlmock.NewRows(productColumns).
		AddRow("a", "A", "d", "10.50", "img", "{one,two}", 3).
		AddRow("b", "B", "d2", "20", "imgb", "{}", 0)
	mock.ExpectQuery("FROM products").WillReturnRows(rows)

	all, err := repo.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 products, got %d", len(all))
	}
	if !all[0].Price.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("unexpected price %s", all[0].Price)
	}
	if len(all[0].Features) != 2 || all[0].Features[1] != "two" {
		t.Fatalf("unexpected features %v", all[0].Features)
	}
	if all[1].Features == nil {
		t.Fatalf("features should be an empty slice, not nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestList_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM products").WillReturnError(errors.New("no such table"))
	if _, err := NewPostgresRepository(db).List(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("WHERE id = \\$1").WithArgs("nope").WillReturnRows(sqlmock.NewRows(productColumns))
	if _, err := repo.GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestReset(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock error: %v", err)
	}
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM products").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO products").
		WithArgs("ecoshield-1l", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 100).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Reset(SampleProducts()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
