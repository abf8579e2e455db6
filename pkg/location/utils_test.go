package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNmcliAccessPoints(t *testing.T) {
	output := `AA\:BB\:CC\:DD\:EE\:FF:72
00\:14\:22\:01\:23\:45:40
garbage
ZZ\:BB\:CC\:DD\:EE\:FF:10
`
	aps, err := parseNmcliAccessPoints(output)
	require.NoError(t, err)
	require.Len(t, aps, 2)

	assert.Equal(t, "AA:BB:CC:DD:EE:FF", aps[0].MACAddress)
	assert.Equal(t, 72.0, aps[0].SignalStrength)
	assert.Equal(t, "00:14:22:01:23:45", aps[1].MACAddress)
}

func TestParseMmcliCellTower(t *testing.T) {
	output := `modem.location.3gpp.mcc : 214
modem.location.3gpp.mnc : 7
modem.location.3gpp.lac : 2B0A
modem.location.3gpp.cid : 01A2B3C4
`
	towers, err := parseMmcliCellTower(output)
	require.NoError(t, err)
	require.Len(t, towers, 1)

	assert.Equal(t, 214, towers[0].MobileCountryCode)
	assert.Equal(t, 7, towers[0].MobileNetworkCode)
	assert.Equal(t, 0x2B0A, towers[0].LocationAreaCode)
	assert.Equal(t, 0x01A2B3C4, towers[0].CellID)
}

func TestParseMmcliCellTower_Incomplete(t *testing.T) {
	_, err := parseMmcliCellTower("modem.location.3gpp.lac : 2B0A\n")
	assert.EqualError(t, err, "incomplete cell tower data")
}

func TestIsValidMAC(t *testing.T) {
	assert.True(t, isValidMAC("FF:14:22:01:23:45"))
	assert.False(t, isValidMAC("FF:14:22:01:23"))
	assert.False(t, isValidMAC("FF:14:22:01:23:4G"))
}
