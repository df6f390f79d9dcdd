package pattern

import (
	"testing"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupTransactionsByMerchant(t *testing.T) {
	jan := testutil.Date(2025, 1, 5)
	txns := []model.Transaction{
		testutil.Debit("NETFLIX COM", 649, jan),
		testutil.Debit("Spotify", 119, jan),
		testutil.Debit("netflix.com", 649, jan.AddDate(0, 1, 0)),
		testutil.Credit("NETFLIX COM", 649, jan),
		testutil.Debit("  spotify  ", 119, jan.AddDate(0, 1, 0)),
		testutil.Debit("   ", 10, jan),
	}

	clusters := NewMerchantClusterer(DefaultClusterThreshold).GroupTransactionsByMerchant(txns)
	require.Len(t, clusters, 2)

	assert.Equal(t, "NETFLIX COM", clusters[0].Key)
	assert.Len(t, clusters[0].Transactions, 2)
	assert.Equal(t, "SPOTIFY", clusters[1].Key)
	assert.Len(t, clusters[1].Transactions, 2)

	for _, c := range clusters {
		for _, txn := range c.Transactions {
			assert.True(t, txn.IsDebit())
		}
	}
}

func TestGroupTransactionsByMerchant_Threshold(t *testing.T) {
	jan := testutil.Date(2025, 1, 5)
	txns := []model.Transaction{
		testutil.Debit("NETFLIX", 649, jan),
		testutil.Debit("NETFLIX COM", 649, jan),
	}

	strict := NewMerchantClusterer(0.8).GroupTransactionsByMerchant(txns)
	assert.Len(t, strict, 2)

	loose := NewMerchantClusterer(0.6).GroupTransactionsByMerchant(txns)
	require.Len(t, loose, 1)
	assert.Equal(t, "NETFLIX", loose[0].Key)
}

func TestGroupTransactionsByMerchant_Empty(t *testing.T) {
	clusters := NewMerchantClusterer(0).GroupTransactionsByMerchant(nil)
	assert.Empty(t, clusters)
}
