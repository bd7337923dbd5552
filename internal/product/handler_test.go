package product

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func makeApp(repo Repository) *fiber.App {
	app := fiber.New()
	NewHandler(NewService(repo)).RegisterPublicRoutes(app)
	return app
}

func TestProductRoutes_Registered(t *testing.T) {
	app := makeApp(NewInMemoryRepository(nil))

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Path] = true
		}
	}
	for _, p := range []string{"/api/products", "/api/products/:id", "/dev/reset-products"} {
		if !routes[p] {
			t.Fatalf("expected route %q to be registered", p)
		}
	}
}

func TestGetProducts(t *testing.T) {
	app := makeApp(NewInMemoryRepository(SampleProducts()))

	res, err := app.Test(httptest.NewRequest("GET", "/api/products", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}

	var got []Product
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ecoshield-1l" {
		t.Fatalf("unexpected products %+v", got)
	}
	if !got[0].Price.Equal(decimal.NewFromInt(159)) {
		t.Fatalf("unexpected price %s", got[0].Price)
	}
	if len(got[0].Features) != 8 {
		t.Fatalf("expected 8 features, got %d", len(got[0].Features))
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	app := makeApp(NewInMemoryRepository(SampleProducts()))

	res, _ := app.Test(httptest.NewRequest("GET", "/api/products/missing", nil))
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), "Product not found") {
		t.Fatalf("unexpected body %s", string(b))
	}

	res2, _ := app.Test(httptest.NewRequest("GET", "/api/products/ecoshield-1l", nil))
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", res2.StatusCode)
	}
}

func TestResetProducts(t *testing.T) {
	repo := NewInMemoryRepository(SampleProducts())
	app := makeApp(repo)

	req := httptest.NewRequest("POST", "/dev/reset-products", strings.NewReader(`[{"id":"a","name":"A","price":10}]`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 without ALLOW_RESET_PRODUCTS, got %d", res.StatusCode)
	}

	t.Setenv("ALLOW_RESET_PRODUCTS", "1")
	req2 := httptest.NewRequest("POST", "/dev/reset-products", strings.NewReader(`[{"id":"a","name":"A","price":10}]`))
	req2.Header.Set("Content-Type", "application/json")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", res2.StatusCode)
	}
	all, _ := repo.List()
	if len(all) != 1 || all[0].ID != "a" {
		t.Fatalf("unexpected products after reset %+v", all)
	}

	req3 := httptest.NewRequest("POST", "/dev/reset-products", strings.NewReader(`[{"id":"b","price":1}]`))
	req3.Header.Set("Content-Type", "application/json")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for nameless product, got %d", res3.StatusCode)
	}
}

func TestSeedIfEmpty(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	svc := NewService(repo)
	if err := svc.SeedIfEmpty(SampleProducts()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.SeedIfEmpty([]Product{{ID: "other", Name: "Other"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	all, _ := svc.List()
	if len(all) != 1 || all[0].ID != "ecoshield-1l" {
		t.Fatalf("seed should only run on an empty store, got %+v", all)
	}
}
