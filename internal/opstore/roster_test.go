package opstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRosterConfig_Defaults(t *testing.T) {
	cfg := RosterConfig{}
	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, "", cfg.KeyPrefix)
	assert.Equal(t, time.Duration(0), cfg.TTL)
}

func TestRosterStore_KeyBuilding(t *testing.T) {
	r := &RosterStore{prefix: "ledctrl:roster"}

	key := r.key("10.0.0.5:6455")
	assert.Equal(t, "ledctrl:roster:10.0.0.5:6455", key)
}
