package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailedStep(t *testing.T) {
	cause := errors.New("connection refused")
	res := FailedStep(cause)

	assert.False(t, res.Observation.Known())
	assert.True(t, math.IsNaN(res.Reward), "reward must be NaN, got %v", res.Reward)
	assert.True(t, res.Done)
	assert.NotNil(t, res.Info)
	assert.Empty(t, res.Info)
	assert.ErrorIs(t, res.Err, cause)
	assert.True(t, res.Failed())
}

func TestStepResult_ZeroRewardIsNotFailure(t *testing.T) {
	res := StepResult{Reward: 0, Info: map[string]any{}}
	assert.False(t, res.Failed())
}

func TestObservation(t *testing.T) {
	t.Run("Null Is Unknown", func(t *testing.T) {
		assert.False(t, NewObservation(json.RawMessage("null")).Known())
		assert.False(t, NewObservation(nil).Known())
		assert.False(t, NewObservation(json.RawMessage("  ")).Known())
	})

	t.Run("Passes Value Through", func(t *testing.T) {
		obs := NewObservation(json.RawMessage(` {"glucose": 120.5, "t": [1,2]} `))
		require.True(t, obs.Known())
		assert.JSONEq(t, `{"glucose": 120.5, "t": [1,2]}`, string(obs.Raw()))

		var v struct {
			Glucose float64 `json:"glucose"`
		}
		require.NoError(t, obs.Decode(&v))
		assert.Equal(t, 120.5, v.Glucose)
	})

	t.Run("Marshals Unknown As Null", func(t *testing.T) {
		data, err := json.Marshal(StepResult{Info: map[string]any{}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"observation": null, "reward": 0, "done": false, "info": {}}`, string(data))
	})

	t.Run("Zero Value Equals Unknown", func(t *testing.T) {
		var obs Observation
		assert.Equal(t, UnknownObservation.String(), obs.String())
		assert.NoError(t, obs.Decode(&struct{}{}))
	})
}

func TestEpisodeName(t *testing.T) {
	assert.Equal(t, "episode_1", EpisodeName(1))
	assert.Equal(t, "episode_42", EpisodeName(42))
}
