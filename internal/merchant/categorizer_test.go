package merchant

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransactionStore struct {
	categories map[string]int
}

func (s *fakeTransactionStore) InsertTransaction(_ context.Context, txn model.Transaction) (string, error) {
	return txn.ID, nil
}

func (s *fakeTransactionStore) ExistsByRawBody(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (s *fakeTransactionStore) GetAllTransactions(_ context.Context) ([]model.Transaction, error) {
	return nil, nil
}

func (s *fakeTransactionStore) UpdateTransactionCategory(_ context.Context, id string, categoryID int) error {
	s.categories[id] = categoryID
	return nil
}

func TestCategorizer_Categorize(t *testing.T) {
	tests := []struct {
		name         string
		merchant     string
		wantType     MatchType
		wantCategory int
		wantUsage    int
	}{
		{name: "exact match is applied", merchant: "NETFLIX", wantType: MatchExact, wantCategory: 7, wantUsage: 1},
		{name: "trusted fuzzy match is applied", merchant: "SWIGGY INSTAMART BLR.", wantType: MatchFuzzy, wantCategory: 3, wantUsage: 1},
		{name: "uncertain fuzzy match is left for review", merchant: "MY CHICKEN SHOP", wantType: MatchFuzzy},
		{name: "unknown merchant is left alone", merchant: "AMAZON PRIME", wantType: MatchNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mappings := newFakeMappingStore(testMappings()...)
			txns := &fakeTransactionStore{categories: make(map[string]int)}
			c := NewCategorizer(NewResolver(mappings), mappings, txns)

			txn := model.Transaction{ID: "txn-1"}
			txn.Merchant = tt.merchant

			match, err := c.Categorize(context.Background(), txn)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, match.Type)
			assert.Equal(t, tt.wantCategory, txns.categories["txn-1"])

			total := 0
			for _, n := range mappings.usage {
				total += n
			}
			assert.Equal(t, tt.wantUsage, total)
		})
	}
}
