package products

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-marketplace-api/internal/apperr"
	"github.com/imrishuroy/go-marketplace-api/internal/dynamotest"
	"github.com/imrishuroy/go-marketplace-api/internal/money"
)

func newTestStore(t *testing.T) (*Store, *dynamotest.Fake) {
	t.Helper()
	fake := dynamotest.New().CreateTable("products", "product_id")
	s := NewStore(fake, "products")
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	seq := 0
	s.newID = func() string {
		seq++
		return fmt.Sprintf("p%02d", seq)
	}
	return s, fake
}

func sampleProduct(managerEmail string) Product {
	return Product{
		Title:    "Desk lamp",
		Category: "home",
		Price:    money.MustNew("19.99"),
		Quantity: 5,
		Images:   []string{"https://img.example/lamp.png"},
		Manager:  Manager{ID: "u1", Email: managerEmail},
	}
}

func TestCreateAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleProduct("m@example.com"))
	require.NoError(t, err)
	require.Equal(t, "p01", created.ProductID)

	got, err := s.Get(ctx, created.ProductID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Desk lamp", got.Title)
	assert.True(t, got.Price.Equal(money.MustNew("19.99")))
	assert.Equal(t, "m@example.com", got.Manager.Email)
	assert.Equal(t, "https://img.example/lamp.png", got.FirstImage())

	missing, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDecrementQuantity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p := sampleProduct("m@example.com")
	p.Quantity = 1
	created, err := s.Create(ctx, p)
	require.NoError(t, err)

	require.NoError(t, s.DecrementQuantity(ctx, created.ProductID, 1))
	got, err := s.Get(ctx, created.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	err = s.DecrementQuantity(ctx, created.ProductID, 1)
	require.ErrorIs(t, err, ErrOutOfStock)

	err = s.DecrementQuantity(ctx, "nope", 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListByManagerAndHome(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, sampleProduct("a@example.com"))
	require.NoError(t, err)
	_, err = s.Create(ctx, sampleProduct("b@example.com"))
	require.NoError(t, err)
	c, err := s.Create(ctx, sampleProduct("a@example.com"))
	require.NoError(t, err)

	mine, err := s.ListByManager(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	// newest first
	assert.Equal(t, c.ProductID, mine[0].ProductID)
	assert.Equal(t, a.ProductID, mine[1].ProductID)

	_, err = s.SetShowOnHome(ctx, a.ProductID, true)
	require.NoError(t, err)
	_, err = s.SetShowOnHome(ctx, c.ProductID, true)
	require.NoError(t, err)

	home, err := s.ListHome(ctx, 1)
	require.NoError(t, err)
	require.Len(t, home, 1)
	assert.True(t, home[0].ShowOnHome)
}

func TestPatchAndReplace(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleProduct("m@example.com"))
	require.NoError(t, err)

	title := "Floor lamp"
	price := money.MustNew("49.50")
	patched, err := s.Patch(ctx, created.ProductID, Fields{Title: &title, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Floor lamp", patched.Title)
	assert.Equal(t, "home", patched.Category, "untouched fields survive a patch")
	assert.Equal(t, 5, patched.Quantity)
	assert.True(t, patched.UpdatedAt.After(patched.CreatedAt))

	qty := 9
	replaced, err := s.Replace(ctx, created.ProductID, Fields{Title: &title, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 9, replaced.Quantity)
	assert.Equal(t, "", replaced.Category, "replace clears omitted fields")
	assert.Empty(t, replaced.Images)
	assert.Equal(t, "m@example.com", replaced.Manager.Email, "manager is not editable")

	_, err = s.Patch(ctx, "nope", Fields{Title: &title})
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.Patch(ctx, "nope", Fields{})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, sampleProduct("m@example.com"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, created.ProductID))
	assert.Equal(t, 0, fake.Len("products"))

	require.ErrorIs(t, s.Delete(ctx, created.ProductID), apperr.ErrNotFound)
}

func TestStorePaginate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := s.Create(ctx, sampleProduct("m@example.com"))
		require.NoError(t, err)
	}

	page, err := s.Paginate(ctx, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, page.TotalProducts)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Products, 3)
	// newest first: p07..p05 on page 1, p04..p02 on page 2
	assert.Equal(t, "p04", page.Products[0].ProductID)

	last, err := s.Paginate(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, last.Products, 1)

	beyond, err := s.Paginate(ctx, 9, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond.Products)
}
