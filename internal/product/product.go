package product

import (
	"github.com/shopspring/decimal"
	"github.com/wichananm65/earthly-storefront/internal/money"
)

// Product is a purchasable item as served by `/api/products`.
// Price is expressed in the major currency unit (rupees).
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Features    []string        `json:"features"`
	Stock       int             `json:"stock"`
}

// PriceMinor returns the unit price in minor currency units (paise).
func (p Product) PriceMinor() (int64, error) {
	return money.ToMinor(p.Price)
}

// SampleProducts is the catalogue seeded into an empty store.
func SampleProducts() []Product {
	return []Product{
		{
			ID:   "ecoshield-1l",
			Name: "EcoShield Natural Floor Cleanser",
			Description: "A natural floor cleanser that is 77.6% plant-based, crafted with neem extract and " +
				"eucalyptus oil. Cleans deeply, repels flies and mosquitoes and is safe for sensitive skin.",
			Price:    decimal.NewFromInt(159),
			ImageURL: "https://images.unsplash.com/photo-1658238613327-4330ee3f029a",
			Features: []string{
				"77.6% natural or plant-based ingredients",
				"Made with neem extract and eucalyptus oil",
				"Natural fly and mosquito repellent",
				"No harmful chemicals - safe for sensitive skin",
				"Retains floor moisture and prevents cracking",
				"Acts as disinfectant - kills bacteria and fungi",
				"Minimum water pollution",
				"Fresh eucalyptus fragrance",
			},
			Stock: 100,
		},
	}
}
