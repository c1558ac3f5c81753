package uictl_test

import (
	"testing"

	"github.com/alkime/screenrec/pkg/uictl"
	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, uictl.Clamp(5, 1, 10))
	assert.Equal(t, 1, uictl.Clamp(-3, 1, 10))
	assert.Equal(t, 10, uictl.Clamp(42, 1, 10))
	assert.InDelta(t, 0.5, uictl.Clamp(0.5, 0.0, 1.0), 1e-9)
	assert.InDelta(t, 1.0, uictl.Clamp(1.5, 0.0, 1.0), 1e-9)
}
