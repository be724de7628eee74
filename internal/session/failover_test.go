package session

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, userID int64) (*Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *mockStore) Put(ctx context.Context, s *Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func TestFailoverStore(t *testing.T) {
	primary := new(mockStore)
	fallback := new(mockStore)
	logger := zerolog.New(io.Discard)
	fs := NewFailoverStore(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		s := NewSession(1)
		primary.On("Get", ctx, int64(1)).Return(s, nil).Once()

		got, err := fs.Get(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, s, got)
		assert.False(t, fs.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackServes", func(t *testing.T) {
		s := NewSession(2)
		primary.On("Get", ctx, int64(2)).Return(nil, errors.New("connection refused")).Once()
		fallback.On("Get", ctx, int64(2)).Return(s, nil).Once()

		got, err := fs.Get(ctx, 2)
		assert.NoError(t, err)
		assert.Equal(t, s, got)
		assert.True(t, fs.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("DownSkipsPrimary", func(t *testing.T) {
		// Probe window not elapsed: primary must not be called at all.
		s := NewSession(3)
		fallback.On("Get", ctx, int64(3)).Return(s, nil).Once()

		got, err := fs.Get(ctx, 3)
		assert.NoError(t, err)
		assert.Equal(t, s, got)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		fs.isDown.Store(true)
		fs.lastCheck = time.Now().Add(-2 * time.Minute)

		s := NewSession(4)
		primary.On("Get", ctx, int64(4)).Return(s, nil).Once()

		got, err := fs.Get(ctx, 4)
		assert.NoError(t, err)
		assert.Equal(t, s, got)
		assert.False(t, fs.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("DeleteClearsBothStores", func(t *testing.T) {
		primary.On("Delete", ctx, int64(5)).Return(nil).Once()
		fallback.On("Delete", ctx, int64(5)).Return(nil).Once()

		assert.NoError(t, fs.Delete(ctx, 5))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("PutFallsBack", func(t *testing.T) {
		fs.isDown.Store(false)
		s := NewSession(6)
		primary.On("Put", ctx, s).Return(errors.New("timeout")).Once()
		fallback.On("Put", ctx, s).Return(nil).Once()

		assert.NoError(t, fs.Put(ctx, s))
		assert.True(t, fs.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
