package dues

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAsConsistencyError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)
	ctx := context.Background()

	assert.NoError(t, asConsistencyError(ctx, logger, "op", nil))
	assert.ErrorIs(t, asConsistencyError(ctx, logger, "op", dues.ErrDueNotFound), dues.ErrDueNotFound)
	assert.ErrorIs(t, asConsistencyError(ctx, logger, "op", context.Canceled), context.Canceled)
	assert.Zero(t, logs.Len())

	err := asConsistencyError(ctx, logger, "allocate", fmt.Errorf("disk: %w", errors.New("full")))
	de, ok := shared.IsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "CONSISTENCY_ERROR", de.Code)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "allocate", logs.All()[0].ContextMap()["operation"])
}

func TestUniqueIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Equal(t, []uuid.UUID{a, b}, uniqueIDs([]uuid.UUID{a, uuid.Nil, b, a}))
	assert.Empty(t, uniqueIDs(nil))
}
