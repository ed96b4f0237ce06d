package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleOffStillCarriesActiveField(t *testing.T) {
	data, err := json.Marshal(&Response{ID: "1", Action: ActionToggle, Success: true, Active: false})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"active":false`)
}

func TestEmptyCanvasDataSerializesAsNull(t *testing.T) {
	data, err := json.Marshal(&Response{ID: "2", Action: ActionGetCanvasData, Success: true})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"canvasData":null`)
}
