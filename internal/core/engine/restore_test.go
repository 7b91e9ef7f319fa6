package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acazau/gridpilot/internal/core/domain"
)

func TestSellRestoreRevertsState(t *testing.T) {
	h := newTestEngine(t, fakeReader{}, 8)
	h.store.data["home_morning"] = domain.RestorePayload{
		WorkMode:      "Zero Export To Load",
		ProgSocEntity: "number.prog3_soc",
		ProgSocValue:  10,
		RestoreHour:   8,
		SellType:      domain.SellMorning,
		Timestamp:     h.engine.Now().Add(-time.Hour),
	}

	outcome, err := h.engine.RunSellRestore(domain.SellMorning)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, domain.ActionNormalRestored, outcome.Action)
	assert.Equal(t, "Zero Export To Load", h.inverter.options["select.work_mode"])
	assert.Equal(t, 10.0, h.inverter.numbers["number.prog3_soc"])
	assert.Empty(t, h.store.data, "payload is consumed")
	assert.Len(t, h.notifier.messages, 1)
}

func TestSellRestoreNothingPersisted(t *testing.T) {
	h := newTestEngine(t, fakeReader{}, 8)
	outcome, err := h.engine.RunSellRestore(domain.SellEvening)
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Empty(t, h.inverter.numbers)
	assert.Empty(t, h.notifier.messages)
}

func TestRestoreOverdueFiresAfterRestart(t *testing.T) {
	h := newTestEngine(t, fakeReader{}, 4)
	// sold yesterday evening, restore hour long past
	h.store.data["home_evening"] = domain.RestorePayload{
		WorkMode:      "Zero Export To Load",
		ProgSocEntity: "number.prog5_soc",
		ProgSocValue:  10,
		RestoreHour:   18,
		SellType:      domain.SellEvening,
		Timestamp:     h.engine.Now().Add(-11 * time.Hour),
	}

	require.NoError(t, h.engine.RestoreOverdue())
	assert.Empty(t, h.store.data)
	assert.Equal(t, 10.0, h.inverter.numbers["number.prog5_soc"])
}

func TestRestoreNotOverdueBeforeHour(t *testing.T) {
	h := newTestEngine(t, fakeReader{}, 17)
	h.store.data["home_evening"] = domain.RestorePayload{
		WorkMode:      "Zero Export To Load",
		ProgSocEntity: "number.prog5_soc",
		ProgSocValue:  10,
		RestoreHour:   18,
		SellType:      domain.SellEvening,
		Timestamp:     h.engine.Now().Add(-30 * time.Minute),
	}

	require.NoError(t, h.engine.RestoreOverdue())
	assert.Contains(t, h.store.data, "home_evening", "restore waits for its hour")
	assert.Empty(t, h.inverter.numbers)
}
