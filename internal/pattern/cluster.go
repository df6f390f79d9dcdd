package pattern

import (
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/similarity"
)

// DefaultClusterThreshold is the similarity a merchant needs to join an existing cluster.
const DefaultClusterThreshold = 0.8

// MerchantClusterer groups debits greedily: each merchant joins the first existing cluster
// whose key is similar enough, so results depend on input order.
type MerchantClusterer struct {
	threshold float64
}

// NewMerchantClusterer creates a clusterer with the given similarity threshold.
func NewMerchantClusterer(threshold float64) *MerchantClusterer {
	if threshold <= 0 {
		threshold = DefaultClusterThreshold
	}
	return &MerchantClusterer{threshold: threshold}
}

// GroupTransactionsByMerchant clusters debit transactions by canonical merchant name.
// Clusters are returned in the order their first transaction was seen.
func (c *MerchantClusterer) GroupTransactionsByMerchant(txns []model.Transaction) []Cluster {
	var clusters []Cluster
	keyOf := make(map[string]int) // normalized merchant -> cluster index

	for _, txn := range txns {
		if !txn.IsDebit() {
			continue
		}
		name := similarity.Normalize(txn.Merchant)
		if name == "" {
			continue
		}

		idx, seen := keyOf[name]
		if !seen {
			idx = -1
			for i := range clusters {
				if similarity.IsSimilar(name, clusters[i].Key, c.threshold) {
					idx = i
					break
				}
			}
			if idx < 0 {
				clusters = append(clusters, Cluster{Key: name})
				idx = len(clusters) - 1
			}
			keyOf[name] = idx
		}

		clusters[idx].Transactions = append(clusters[idx].Transactions, txn)
	}

	return clusters
}
