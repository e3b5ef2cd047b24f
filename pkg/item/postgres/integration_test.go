package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"shopmart/pkg/item"
	"shopmart/pkg/item/postgres"
)

func startPostgres(ctx context.Context) (*tcpostgres.PostgresContainer, string, error) {
	container, err := tcpostgres.Run(ctx, "postgres:17.6-alpine3.22",
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}

	return container, connStr, nil
}

type repositorySuite struct {
	suite.Suite

	container *tcpostgres.PostgresContainer
	db        *sql.DB
	repo      *postgres.Repository
}

// entry point to run the tests in the suite
func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	suite.Run(t, new(repositorySuite))
}

// before all tests in the suite
func (s *repositorySuite) SetupSuite() {
	ctx := s.T().Context()

	container, connStr, err := startPostgres(ctx)
	s.Require().NoError(err)
	s.container = container

	s.db, err = sql.Open("postgres", connStr)
	s.Require().NoError(err)
	s.Require().NoError(postgres.EnsureSchema(ctx, s.db))

	s.repo = postgres.New(s.db)
}

// after all tests in the suite
func (s *repositorySuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *repositorySuite) TearDownTest() {
	_, err := s.db.ExecContext(context.Background(), "TRUNCATE TABLE items")
	s.NoError(err)
}

func (s *repositorySuite) TestCRUD() {
	t := s.T()
	ctx := t.Context()

	it := randomItem(4)
	require.NoError(t, s.repo.Create(ctx, it))
	assert.ErrorIs(t, s.repo.Create(ctx, it), item.ErrAlreadyExists)

	got, err := s.repo.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, it, got)

	it.Stock = 9
	require.NoError(t, s.repo.Update(ctx, it))

	list, err := s.repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 9, list[0].Stock)

	require.NoError(t, s.repo.Delete(ctx, it.ID))
	_, err = s.repo.Get(ctx, it.ID)
	assert.ErrorIs(t, err, item.ErrNotFound)
}

func (s *repositorySuite) TestDecrementStockIsAllOrNothing() {
	t := s.T()
	ctx := t.Context()

	a, b := randomItem(5), randomItem(2)
	require.NoError(t, s.repo.Create(ctx, a))
	require.NoError(t, s.repo.Create(ctx, b))

	err := s.repo.DecrementStock(ctx, []item.Decrement{{ID: a.ID, Quantity: 3}, {ID: b.ID, Quantity: 3}})
	require.ErrorIs(t, err, item.ErrInsufficientStock)

	gotA, err := s.repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, gotA.Stock)

	require.NoError(t, s.repo.DecrementStock(ctx, []item.Decrement{{ID: a.ID, Quantity: 3}, {ID: b.ID, Quantity: 1}}))

	gotA, err = s.repo.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := s.repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotA.Stock)
	assert.Equal(t, 1, gotB.Stock)
}

func (s *repositorySuite) TestConcurrentDecrementsNeverOversell() {
	t := s.T()
	ctx := t.Context()

	it := randomItem(10)
	require.NoError(t, s.repo.Create(ctx, it))

	var (
		wg      sync.WaitGroup
		settled atomic.Int32
	)
	for range 30 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.repo.DecrementStock(ctx, []item.Decrement{{ID: it.ID, Quantity: 1}}); err == nil {
				settled.Add(1)
			}
		}()
	}
	wg.Wait()

	got, err := s.repo.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), settled.Load())
	assert.Equal(t, 0, got.Stock)
}

func randomItem(stock int) item.Item {
	return item.New(
		gofakeit.ProductName(),
		gofakeit.ProductDescription(),
		gofakeit.ProductCategory(),
		stock,
		float64(gofakeit.Number(1, 500)),
	)
}
