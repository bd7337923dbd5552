package cart

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/earthly-storefront/internal/product"
)

func prod(id string, price string) product.Product {
	return product.Product{ID: id, Name: "p" + id, Price: decimal.RequireFromString(price)}
}

func TestScenarioA_TotalAndCount(t *testing.T) {
	s := New()
	p1, p2 := prod("1", "199"), prod("2", "99")
	require.NoError(t, s.Add(p1))
	require.NoError(t, s.Add(p1))
	require.NoError(t, s.Add(p2))

	assert.True(t, s.Total().Equal(decimal.NewFromInt(497)))
	assert.Equal(t, "497.00", s.Total().StringFixed(2))
	assert.Equal(t, int64(49700), s.TotalMinor())
	assert.Equal(t, 3, s.Count())
	assert.Len(t, s.Lines(), 2)
}

func TestAdd_IncrementsExistingLine(t *testing.T) {
	s := New()
	p := prod("1", "10")
	s.Add(p)
	s.Add(p)
	s.Add(p)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestAdd_NegativePrice(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.Add(prod("x", "-1")), ErrInvalidPrice)
	assert.True(t, s.Empty())
}

func TestSetQuantity_Idempotence(t *testing.T) {
	p := prod("1", "12.50")

	a := New()
	a.Add(p)
	a.Add(p)
	a.SetQuantity(p.ID, 2)

	b := New()
	b.Add(p)
	b.SetQuantity(p.ID, 2)

	assert.Equal(t, a.Lines(), b.Lines())
	assert.Equal(t, a.TotalMinor(), b.TotalMinor())
}

func TestSetQuantity_NonPositiveRemoves(t *testing.T) {
	for _, qty := range []int{0, -5} {
		s := New()
		s.Add(prod("1", "5"))
		s.Add(prod("2", "5"))
		s.SetQuantity("1", qty)

		assert.Equal(t, 0, s.Quantity("1"), "qty %d", qty)
		assert.Len(t, s.Lines(), 1, "qty %d", qty)
		assert.Equal(t, 1, s.Count(), "qty %d", qty)
	}
}

func TestSetQuantity_AbsentIsNoop(t *testing.T) {
	s := New()
	s.Add(prod("1", "5"))
	s.SetQuantity("missing", 4)
	assert.Len(t, s.Lines(), 1)
	assert.Equal(t, 1, s.Count())
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() { s.Remove("missing") })
	s.Add(prod("1", "5"))
	s.Remove("missing")
	assert.Equal(t, 1, s.Count())
	s.Remove("1")
	assert.True(t, s.Empty())
}

func TestClear(t *testing.T) {
	s := New()
	s.Add(prod("1", "5"))
	s.Clear()
	assert.True(t, s.Empty())
	assert.Equal(t, 0, s.Count())
	assert.True(t, s.Total().IsZero())
}

func TestTotalsNeverDrift(t *testing.T) {
	products := []product.Product{prod("a", "0.10"), prod("b", "0.20"), prod("c", "199.99"), prod("d", "1")}
	rng := rand.New(rand.NewSource(7))
	s := New()

	for i := 0; i < 2000; i++ {
		p := products[rng.Intn(len(products))]
		switch rng.Intn(3) {
		case 0:
			s.Add(p)
		case 1:
			s.Remove(p.ID)
		default:
			s.SetQuantity(p.ID, rng.Intn(9)-3)
		}

		var wantCount int
		var wantTotal int64
		for _, l := range s.Lines() {
			require.GreaterOrEqual(t, l.Quantity, 1)
			wantCount += l.Quantity
			wantTotal += l.UnitMinor * int64(l.Quantity)
		}
		require.Equal(t, wantCount, s.Count())
		require.Equal(t, wantTotal, s.TotalMinor())
	}
}

func TestRemoveLines_KeepsLaterAdditions(t *testing.T) {
	s := New()
	p1, p2, p3 := prod("1", "199"), prod("2", "99"), prod("3", "50")
	require.NoError(t, s.Add(p1))
	require.NoError(t, s.Add(p2))
	paid := s.Lines()

	require.NoError(t, s.Add(p1))
	require.NoError(t, s.Add(p3))
	s.Remove("2")

	s.RemoveLines(paid)
	assert.Equal(t, 1, s.Quantity("1"))
	assert.Equal(t, 0, s.Quantity("2"))
	assert.Equal(t, 1, s.Quantity("3"))
	assert.Equal(t, int64(19900+5000), s.TotalMinor())

	s.RemoveLines([]Line{{Product: p1, Quantity: 5}})
	assert.Equal(t, 0, s.Quantity("1"))
	assert.Equal(t, 1, s.Count())
}
