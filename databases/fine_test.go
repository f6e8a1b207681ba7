package databases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/databases/mocks"
	"github.com/ashish-0314/Traffic-Management/models"
)

func TestSumPaidAmounts(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursorHelper := &mocks.CursorHelper{}

	cursorHelper.On("Decode", mock.AnythingOfType("*[]models.FineTotal")).
		Return(nil).
		Run(func(args mock.Arguments) {
			arg := args.Get(0).(*[]models.FineTotal)
			*arg = []models.FineTotal{{TotalCollected: 1250.50}}
		})
	collectionHelper.On("Aggregate", context.Background(), mock.Anything).Return(cursorHelper, nil)
	dbHelper.On("Collection", "fines").Return(collectionHelper)

	fineDB := databases.NewFineDatabase(dbHelper)
	total, err := fineDB.SumPaidAmounts(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1250.50, total)
}

func TestSumPaidAmountsEmptyCollection(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursorHelper := &mocks.CursorHelper{}

	cursorHelper.On("Decode", mock.AnythingOfType("*[]models.FineTotal")).Return(nil)
	collectionHelper.On("Aggregate", context.Background(), mock.Anything).Return(cursorHelper, nil)
	dbHelper.On("Collection", "fines").Return(collectionHelper)

	fineDB := databases.NewFineDatabase(dbHelper)
	total, err := fineDB.SumPaidAmounts(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 0.0, total)
}
