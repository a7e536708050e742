package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/geocoder"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// MockSearcher is a mock implementation of geocoder.Searcher
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Geocode(ctx context.Context, name string) (*geocoder.Place, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geocoder.Place), args.Error(1)
}

func (m *MockSearcher) Search(ctx context.Context, query string, opts geocoder.SearchOptions) ([]geocoder.Place, error) {
	args := m.Called(ctx, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]geocoder.Place), args.Error(1)
}

func setupSearchServiceTest() (*ServiceImpl, *MockSearcher) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockGeo := new(MockSearcher)
	cfg := config.PlannerConfig{
		RadiusExpansionFactor: 1.5,
		MaxConcurrentLookups:  1,
	}
	service := NewService(mockGeo, cfg, logger)
	return service, mockGeo
}

var vizag = types.Destination{
	Name:     "Visakhapatnam",
	Center:   types.Coordinate{Latitude: 17.6868, Longitude: 83.2185},
	RadiusKm: 200,
}

var london = types.Destination{
	Name:     "London",
	Center:   types.Coordinate{Latitude: 51.5074, Longitude: -0.1278},
	RadiusKm: 30,
}

func TestSearchServiceImpl_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("specific entity verified on the first pass", func(t *testing.T) {
		service, mockGeo := setupSearchServiceTest()
		mockGeo.On("Search", mock.Anything, "Borra Caves, Visakhapatnam",
			geocoder.SearchOptions{Center: vizag.Center, RadiusKm: 200}).
			Return([]geocoder.Place{{
				Name:        "Borra Caves",
				DisplayName: "Borra Caves, Ananthagiri, Andhra Pradesh, India",
				Coordinate:  types.Coordinate{Latitude: 18.2806, Longitude: 83.0393},
				Type:        "cave",
			}}, nil).Once()

		verified, dropped, err := service.Verify(ctx, vizag, []types.SearchKeyword{
			{Term: "Borra Caves", Category: "cave", Essential: true},
		})
		require.NoError(t, err)
		require.Len(t, verified, 1)
		assert.Empty(t, dropped)
		assert.Equal(t, "Borra Caves", verified[0].Name)
		assert.Equal(t, types.PassSpecificEntity, verified[0].Pass)
		assert.False(t, verified[0].Generalized)
		assert.Equal(t, types.VerificationVerified, verified[0].Status)
		mockGeo.AssertExpectations(t)
	})

	t.Run("fictional entity generalizes to a real category match", func(t *testing.T) {
		service, mockGeo := setupSearchServiceTest()
		opts := geocoder.SearchOptions{Center: london.Center, RadiusKm: 30}
		mockGeo.On("Search", mock.Anything, "The Old Curiosity Bookshop, London", opts).
			Return([]geocoder.Place{}, nil).Once()
		mockGeo.On("Search", mock.Anything, "bookshop, London", opts).
			Return([]geocoder.Place{{
				Name:        "Daunt Books",
				DisplayName: "Daunt Books, Marylebone High Street, London",
				Coordinate:  types.Coordinate{Latitude: 51.5226, Longitude: -0.1516},
				Type:        "books",
			}}, nil).Once()

		verified, dropped, err := service.Verify(ctx, london, []types.SearchKeyword{
			{Term: "The Old Curiosity Bookshop", Category: "bookshop"},
		})
		require.NoError(t, err)
		require.Len(t, verified, 1)
		assert.Empty(t, dropped)
		assert.Equal(t, "Daunt Books", verified[0].Name)
		assert.True(t, verified[0].Generalized)
		assert.Equal(t, types.PassNounFallback, verified[0].Pass)
		assert.Equal(t, "The Old Curiosity Bookshop", verified[0].Keyword)
		mockGeo.AssertExpectations(t)
	})

	t.Run("essential keyword gets one relaxed-radius pass", func(t *testing.T) {
		service, mockGeo := setupSearchServiceTest()
		tight := geocoder.SearchOptions{Center: london.Center, RadiusKm: 30}
		relaxed := geocoder.SearchOptions{Center: london.Center, RadiusKm: 45}
		mockGeo.On("Search", mock.Anything, "Hampton Court Maze, London", tight).
			Return([]geocoder.Place{}, nil).Once()
		mockGeo.On("Search", mock.Anything, "garden, London", tight).
			Return([]geocoder.Place{}, nil).Once()
		mockGeo.On("Search", mock.Anything, "garden, London", relaxed).
			Return([]geocoder.Place{{
				Name:       "Hampton Court Gardens",
				Coordinate: types.Coordinate{Latitude: 51.4036, Longitude: -0.3378},
			}}, nil).Once()

		verified, dropped, err := service.Verify(ctx, london, []types.SearchKeyword{
			{Term: "Hampton Court Maze", Category: "garden", Essential: true},
		})
		require.NoError(t, err)
		require.Len(t, verified, 1)
		assert.Empty(t, dropped)
		assert.Equal(t, types.PassRelaxedRadius, verified[0].Pass)
		mockGeo.AssertExpectations(t)
	})

	t.Run("non-essential keyword never relaxes the radius", func(t *testing.T) {
		service, mockGeo := setupSearchServiceTest()
		opts := geocoder.SearchOptions{Center: london.Center, RadiusKm: 30}
		mockGeo.On("Search", mock.Anything, "quiet jazz cellar, London", opts).
			Return([]geocoder.Place{}, nil).Once()
		mockGeo.On("Search", mock.Anything, "bar, London", opts).
			Return([]geocoder.Place{}, nil).Once()

		verified, dropped, err := service.Verify(ctx, london, []types.SearchKeyword{
			{Term: "quiet jazz cellar", Category: "bar"},
		})
		require.NoError(t, err)
		assert.Empty(t, verified)
		assert.Equal(t, []string{"quiet jazz cellar"}, dropped)
		mockGeo.AssertExpectations(t)
	})

	t.Run("geocoder failure on one pass falls through to the next", func(t *testing.T) {
		service, mockGeo := setupSearchServiceTest()
		opts := geocoder.SearchOptions{Center: london.Center, RadiusKm: 30}
		mockGeo.On("Search", mock.Anything, "British Museum, London", opts).
			Return(nil, errors.New("upstream 503")).Once()
		mockGeo.On("Search", mock.Anything, "museum, London", opts).
			Return([]geocoder.Place{{
				Name:       "British Museum",
				Coordinate: types.Coordinate{Latitude: 51.5194, Longitude: -0.127},
			}}, nil).Once()

		verified, _, err := service.Verify(ctx, london, []types.SearchKeyword{
			{Term: "British Museum", Category: "museum"},
		})
		require.NoError(t, err)
		require.Len(t, verified, 1)
		assert.Equal(t, types.PassNounFallback, verified[0].Pass)
		mockGeo.AssertExpectations(t)
	})

	t.Run("duplicate place matches collapse to one candidate", func(t *testing.T) {
		service, mockGeo := setupSearchServiceTest()
		opts := geocoder.SearchOptions{Center: london.Center, RadiusKm: 30}
		tate := []geocoder.Place{{
			Name:       "Tate Modern",
			Coordinate: types.Coordinate{Latitude: 51.5076, Longitude: -0.0994},
		}}
		mockGeo.On("Search", mock.Anything, "Tate Modern, London", opts).Return(tate, nil).Once()
		mockGeo.On("Search", mock.Anything, "contemporary art space, London", opts).
			Return([]geocoder.Place{}, nil).Once()
		mockGeo.On("Search", mock.Anything, "art gallery, London", opts).Return(tate, nil).Once()

		verified, dropped, err := service.Verify(ctx, london, []types.SearchKeyword{
			{Term: "Tate Modern"},
			{Term: "contemporary art space", Category: "art gallery"},
		})
		require.NoError(t, err)
		assert.Len(t, verified, 1)
		assert.Empty(t, dropped)
		mockGeo.AssertExpectations(t)
	})

	t.Run("empty keyword list", func(t *testing.T) {
		service, _ := setupSearchServiceTest()

		verified, dropped, err := service.Verify(ctx, london, nil)
		require.NoError(t, err)
		assert.Empty(t, verified)
		assert.Empty(t, dropped)
	})
}
