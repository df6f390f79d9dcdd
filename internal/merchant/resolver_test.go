package merchant

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMappingStore struct {
	err      error
	byName   map[string]*model.MerchantMapping
	inserted []model.MerchantMapping
	usage    map[int]int
	all      []model.MerchantMapping
}

func newFakeMappingStore(mappings ...model.MerchantMapping) *fakeMappingStore {
	s := &fakeMappingStore{
		byName: make(map[string]*model.MerchantMapping),
		usage:  make(map[int]int),
	}
	for i := range mappings {
		m := mappings[i]
		s.all = append(s.all, m)
		s.byName[similarity.Normalize(m.RawName)] = &m
	}
	return s
}

func (s *fakeMappingStore) FindMappingByRawName(_ context.Context, rawName string) (*model.MerchantMapping, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byName[rawName], nil
}

func (s *fakeMappingStore) FindAllMappings(_ context.Context) ([]model.MerchantMapping, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.all, nil
}

func (s *fakeMappingStore) InsertMapping(_ context.Context, mapping *model.MerchantMapping) error {
	if s.err != nil {
		return s.err
	}
	mapping.ID = len(s.all) + 1
	s.all = append(s.all, *mapping)
	s.inserted = append(s.inserted, *mapping)
	return nil
}

func (s *fakeMappingStore) IncrementMappingUsage(_ context.Context, id int) error {
	s.usage[id]++
	return nil
}

func testMappings() []model.MerchantMapping {
	return []model.MerchantMapping{
		{ID: 1, RawName: "MY CHICKEN STORE", DisplayName: "My Chicken Store", CategoryID: 3, Confidence: 1.0},
		{ID: 2, RawName: "NETFLIX", DisplayName: "Netflix", CategoryID: 7, Confidence: 0.8},
		{ID: 3, RawName: "SWIGGY INSTAMART BLR", DisplayName: "Swiggy Instamart", CategoryID: 3, Confidence: 1.0},
	}
}

func TestResolver_FindMatch(t *testing.T) {
	tests := []struct {
		name             string
		raw              string
		wantType         MatchType
		wantMappingID    int
		wantConfidence   float64
		wantConfirmation bool
	}{
		{
			name:           "exact match ignores case and spacing",
			raw:            "  netflix ",
			wantType:       MatchExact,
			wantMappingID:  2,
			wantConfidence: 0.8,
		},
		{
			name:             "fuzzy match below auto-accept needs confirmation",
			raw:              "MY CHICKEN SHOP",
			wantType:         MatchFuzzy,
			wantMappingID:    1,
			wantConfidence:   0.8125,
			wantConfirmation: true,
		},
		{
			name:           "near-identical fuzzy match is trusted",
			raw:            "SWIGGY INSTAMART BLR.",
			wantType:       MatchFuzzy,
			wantMappingID:  3,
			wantConfidence: 1 - 1.0/21,
		},
		{
			name:     "unrelated merchant",
			raw:      "AMAZON PRIME",
			wantType: MatchNone,
		},
		{
			name:     "blank merchant",
			raw:      "   ",
			wantType: MatchNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(newFakeMappingStore(testMappings()...))

			got, err := r.FindMatch(context.Background(), tt.raw)
			require.NoError(t, err)

			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantConfirmation, got.RequiresConfirmation)
			if tt.wantType == MatchNone {
				assert.Nil(t, got.Mapping)
				return
			}
			require.NotNil(t, got.Mapping)
			assert.Equal(t, tt.wantMappingID, got.Mapping.ID)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
		})
	}
}

func TestResolver_FindMatch_StoreError(t *testing.T) {
	store := newFakeMappingStore()
	store.err = errors.New("database is locked")

	_, err := NewResolver(store).FindMatch(context.Background(), "NETFLIX")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.err)
}

func TestResolver_ConfirmFuzzyMatch(t *testing.T) {
	store := newFakeMappingStore(testMappings()...)
	r := NewResolver(store)

	match, err := r.FindMatch(context.Background(), "my chicken shop")
	require.NoError(t, err)
	require.Equal(t, MatchFuzzy, match.Type)

	mapping, err := r.ConfirmFuzzyMatch(context.Background(), "my chicken shop", *match.Mapping)
	require.NoError(t, err)

	assert.Equal(t, "MY CHICKEN SHOP", mapping.RawName)
	assert.Equal(t, "My Chicken Store", mapping.DisplayName)
	assert.Equal(t, 3, mapping.CategoryID)
	assert.InDelta(t, 0.8, mapping.Confidence, 1e-9)
	assert.Equal(t, model.SourceConfirmed, mapping.Source)
	require.Len(t, store.inserted, 1)
}

func TestResolver_CreateMapping(t *testing.T) {
	store := newFakeMappingStore()
	r := NewResolver(store)

	mapping, err := r.CreateMapping(context.Background(), "zomato  ltd", "Zomato", 3)
	require.NoError(t, err)

	assert.Equal(t, "ZOMATO LTD", mapping.RawName)
	assert.InDelta(t, 1.0, mapping.Confidence, 1e-9)
	assert.Equal(t, model.SourceManual, mapping.Source)
	assert.NotZero(t, mapping.ID)
}

func TestResolver_RejectFuzzyMatch(t *testing.T) {
	store := newFakeMappingStore(testMappings()...)
	r := NewResolver(store)

	r.RejectFuzzyMatch(context.Background(), "MY CHICKEN SHOP", testMappings()[0])

	assert.Empty(t, store.inserted)
	assert.Len(t, store.all, 3)
}

func TestResolver_WithThreshold(t *testing.T) {
	r := NewResolver(newFakeMappingStore(testMappings()...)).WithThreshold(0.9)

	got, err := r.FindMatch(context.Background(), "MY CHICKEN SHOP")
	require.NoError(t, err)
	assert.Equal(t, MatchNone, got.Type)
}
