package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmart/pkg/item"
)

const (
	selectAll   = "SELECT id,item_name,description,stock,price,category FROM items ORDER BY id"
	selectOne   = "SELECT id,item_name,description,stock,price,category FROM items WHERE id=$1"
	insertItem  = "INSERT INTO items (id,item_name,description,stock,price,category) VALUES ($1,$2,$3,$4,$5,$6)"
	decrementBy = "UPDATE items SET stock=stock-$2 WHERE id=$1 AND stock>=$2"
)

var columns = []string{"id", "item_name", "description", "stock", "price", "category"}

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return New(db), mock
}

func TestList(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectAll)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a", "Kettle", "Boils", 5, 11.0, "kitchen").
			AddRow("b", "Mug", "Holds", 2, 5.5, "kitchen"))

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []item.Item{
		{ID: "a", ItemName: "Kettle", Description: "Boils", Stock: 5, Price: 11, Category: "kitchen"},
		{ID: "b", ItemName: "Mug", Description: "Holds", Stock: 2, Price: 5.5, Category: "kitchen"},
	}, items)
}

func TestListEmptyIsNotNil(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectAll)).WillReturnRows(sqlmock.NewRows(columns))

	items, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestGet(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOne)).WithArgs("a").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("a", "Kettle", "Boils", 5, 11.0, "kitchen"))

		it, err := repo.Get(context.Background(), "a")
		require.NoError(t, err)
		assert.Equal(t, "Kettle", it.ItemName)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOne)).WithArgs("zzz").
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.Get(context.Background(), "zzz")
		assert.ErrorIs(t, err, item.ErrNotFound)
	})
}

func TestCreate(t *testing.T) {
	it := item.Item{ID: "a", ItemName: "Kettle", Description: "Boils", Stock: 5, Price: 11, Category: "kitchen"}

	t.Run("inserted", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(insertItem)).
			WithArgs("a", "Kettle", "Boils", 5, 11.0, "kitchen").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Create(context.Background(), it))
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(insertItem)).
			WillReturnError(&pq.Error{Code: uniqueViolation})

		assert.ErrorIs(t, repo.Create(context.Background(), it), item.ErrAlreadyExists)
	})

	t.Run("invalid item never reaches the database", func(t *testing.T) {
		repo, _ := newMock(t)
		bad := it
		bad.Stock = -1
		assert.ErrorIs(t, repo.Create(context.Background(), bad), item.ErrInvalid)
	})
}

func TestDelete(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM items WHERE id=$1")).WithArgs("zzz").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "zzz"), item.ErrNotFound)
}

func TestDecrementStock(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
		errText string
	}{
		{
			name: "all rows guarded and updated: committed",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(decrementBy)).WithArgs("a", 3).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(decrementBy)).WithArgs("b", 1).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "guard misses on second row: rolled back",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(decrementBy)).WithArgs("a", 3).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(decrementBy)).WithArgs("b", 1).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			wantErr: item.ErrInsufficientStock,
		},
		{
			name: "write fails on second row: rolled back, no partial state",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(decrementBy)).WithArgs("a", 3).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(decrementBy)).WithArgs("b", 1).WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			errText: "connection reset",
		},
		{
			name: "rollback failure is joined",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(decrementBy)).WithArgs("a", 3).WillReturnError(errors.New("boom"))
				mock.ExpectRollback().WillReturnError(errors.New("rollback lost"))
			},
			errText: "tx.Rollback: rollback lost",
		},
		{
			name: "commit fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(decrementBy)).WithArgs("a", 3).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(regexp.QuoteMeta(decrementBy)).WithArgs("b", 1).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(errors.New("commit refused"))
			},
			errText: "tx.Commit: commit refused",
		},
		{
			name: "begin fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
			},
			errText: "db.BeginTx: pool exhausted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			tt.setup(mock)

			err := repo.DecrementStock(context.Background(), []item.Decrement{
				{ID: "a", Quantity: 3},
				{ID: "b", Quantity: 1},
			})

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				assert.ErrorContains(t, err, tt.errText)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
