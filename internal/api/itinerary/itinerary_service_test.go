package itinerary

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// MockGenerator is a mock implementation of the Generator interface
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func setupItineraryServiceTest() (*ServiceImpl, *MockGenerator) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockAI := new(MockGenerator)
	cfg := config.PlannerConfig{DefaultDurationDays: 3}
	aiCfg := config.AIConfig{Timeout: 5 * time.Second, MaxRetries: 1}
	service := NewService(mockAI, HaversineDistancer{}, cfg, aiCfg, logger)
	return service, mockAI
}

var lisbon = types.Destination{
	Name:     "Lisbon",
	Center:   types.Coordinate{Latitude: 38.7223, Longitude: -9.1393},
	RadiusKm: 30,
}

func TestItineraryServiceImpl_Synthesize(t *testing.T) {
	ctx := context.Background()

	t.Run("one narrated day per cluster", func(t *testing.T) {
		service, mockAI := setupItineraryServiceTest()
		candidates := []types.Candidate{
			verifiedAt("Castelo de Sao Jorge", 38.7139, -9.1335),
			verifiedAt("Time Out Market", 38.7067, -9.1459),
		}
		mockAI.On("GenerateContent", mock.Anything, mock.Anything).
			Return("A day of castles and markets.", nil).Twice()

		draft, err := service.Synthesize(ctx, lisbon, candidates, nil, 2, nil)
		require.NoError(t, err)
		require.Len(t, draft.Days, 2)
		assert.Equal(t, 1, draft.Days[0].Day)
		assert.Equal(t, 2, draft.Days[1].Day)
		assert.Equal(t, "A day of castles and markets.", draft.Days[0].Narrative)
		assert.NotEqual(t, draft.ID.String(), "00000000-0000-0000-0000-000000000000")
		mockAI.AssertExpectations(t)
	})

	t.Run("unverified candidate is refused", func(t *testing.T) {
		service, _ := setupItineraryServiceTest()
		candidates := []types.Candidate{
			verifiedAt("Time Out Market", 38.7067, -9.1459),
			{Keyword: "invented bistro", Status: types.VerificationRejected},
		}

		_, err := service.Synthesize(ctx, lisbon, candidates, nil, 2, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refusing to synthesize")
	})

	t.Run("dropped themes are carried on the draft", func(t *testing.T) {
		service, mockAI := setupItineraryServiceTest()
		mockAI.On("GenerateContent", mock.Anything, mock.Anything).
			Return("A short day.", nil).Once()

		draft, err := service.Synthesize(ctx, lisbon,
			[]types.Candidate{verifiedAt("Time Out Market", 38.7067, -9.1459)},
			nil, 1, []string{"underground jazz cellar"})
		require.NoError(t, err)
		assert.Equal(t, []string{"underground jazz cellar"}, draft.DroppedThemes)
		mockAI.AssertExpectations(t)
	})

	t.Run("surplus days become free days without a model call", func(t *testing.T) {
		service, mockAI := setupItineraryServiceTest()
		mockAI.On("GenerateContent", mock.Anything, mock.Anything).
			Return("A packed day.", nil).Once()

		draft, err := service.Synthesize(ctx, lisbon,
			[]types.Candidate{verifiedAt("Time Out Market", 38.7067, -9.1459)},
			nil, 2, nil)
		require.NoError(t, err)
		require.Len(t, draft.Days, 2)
		assert.Empty(t, draft.Days[1].Candidates)
		assert.NotEmpty(t, draft.Days[1].Narrative)
		mockAI.AssertExpectations(t)
	})

	t.Run("narration retries then fails", func(t *testing.T) {
		service, mockAI := setupItineraryServiceTest()
		genErr := errors.New("model overloaded")
		mockAI.On("GenerateContent", mock.Anything, mock.Anything).
			Return("", genErr).Twice()

		_, err := service.Synthesize(ctx, lisbon,
			[]types.Candidate{verifiedAt("Time Out Market", 38.7067, -9.1459)},
			nil, 1, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, genErr))
		mockAI.AssertExpectations(t)
	})

	t.Run("non-positive duration falls back to the default", func(t *testing.T) {
		service, mockAI := setupItineraryServiceTest()
		mockAI.On("GenerateContent", mock.Anything, mock.Anything).
			Return("A day out.", nil).Times(3)

		draft, err := service.Synthesize(ctx, lisbon, []types.Candidate{
			verifiedAt("Castelo de Sao Jorge", 38.7139, -9.1335),
			verifiedAt("Time Out Market", 38.7067, -9.1459),
			verifiedAt("Belem Tower", 38.6916, -9.2160),
		}, nil, 0, nil)
		require.NoError(t, err)
		assert.Len(t, draft.Days, 3)
		mockAI.AssertExpectations(t)
	})
}
