package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogUsableBeforeSetup(t *testing.T) {
	assert.NotNil(t, Log)
	assert.NotPanics(t, func() { Info("starting up") })
}

func TestSetupSwitchesHandler(t *testing.T) {
	Setup("production")
	assert.NotNil(t, Log)
	assert.NotPanics(t, func() { Warn("ready") })
}
