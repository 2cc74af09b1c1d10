package relay

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/filegate/internal/relay/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_RejectsIncompleteConfig(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()

	app, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Nil(t, app)
	assert.Contains(t, err.Error(), "bot token")
}
