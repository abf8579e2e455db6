package location

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"googlemaps.github.io/maps"
)

// getWiFiAccessPoints retrieves nearby WiFi access points using nmcli.
func getWiFiAccessPoints(ctx context.Context) ([]maps.WiFiAccessPoint, error) {
	if _, err := exec.LookPath("nmcli"); err != nil {
		return nil, fmt.Errorf("nmcli not found: %w", err)
	}

	output, err := exec.CommandContext(ctx, "nmcli", "-t", "-f", "BSSID,SIGNAL", "dev", "wifi", "list").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run nmcli: %w", err)
	}
	return parseNmcliAccessPoints(string(output))
}

// parseNmcliAccessPoints parses terse nmcli output. nmcli escapes the colons
// inside the BSSID field as "\:", so only the last unescaped colon separates
// the two columns.
func parseNmcliAccessPoints(output string) ([]maps.WiFiAccessPoint, error) {
	var wifiAPs []maps.WiFiAccessPoint
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		sep := strings.LastIndex(line, ":")
		if sep <= 0 || line[sep-1] == '\\' {
			continue
		}
		macAddress := strings.ReplaceAll(strings.TrimSpace(line[:sep]), `\:`, ":")
		if !isValidMAC(macAddress) {
			continue
		}
		signal, err := strconv.Atoi(strings.TrimSpace(line[sep+1:]))
		if err != nil {
			continue
		}
		wifiAPs = append(wifiAPs, maps.WiFiAccessPoint{
			MACAddress:     macAddress,
			SignalStrength: float64(signal),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan nmcli output: %w", err)
	}
	return wifiAPs, nil
}

// getCellTowers retrieves the serving cell using mmcli for the given modem index.
func getCellTowers(ctx context.Context, modemIndex int) ([]maps.CellTower, error) {
	if _, err := exec.LookPath("mmcli"); err != nil {
		return nil, fmt.Errorf("mmcli not found: %w", err)
	}

	output, err := exec.CommandContext(ctx, "mmcli", "-m", strconv.Itoa(modemIndex), "--location-get", "--output-keyvalue").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run mmcli for modem %d: %w", modemIndex, err)
	}
	return parseMmcliCellTower(string(output))
}

// parseMmcliCellTower extracts the 3GPP identifiers from mmcli key/value output.
func parseMmcliCellTower(output string) ([]maps.CellTower, error) {
	var cellTower maps.CellTower
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "modem.location.3gpp.mcc":
			if mcc, err := strconv.Atoi(value); err == nil {
				cellTower.MobileCountryCode = mcc
			}
		case "modem.location.3gpp.mnc":
			if mnc, err := strconv.Atoi(value); err == nil {
				cellTower.MobileNetworkCode = mnc
			}
		case "modem.location.3gpp.lac":
			if lac, err := strconv.ParseInt(value, 16, 64); err == nil {
				cellTower.LocationAreaCode = int(lac)
			}
		case "modem.location.3gpp.cid":
			if cid, err := strconv.ParseInt(value, 16, 64); err == nil {
				cellTower.CellID = int(cid)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan mmcli output: %w", err)
	}

	if cellTower.MobileCountryCode == 0 || cellTower.MobileNetworkCode == 0 {
		return nil, errors.New("incomplete cell tower data")
	}
	return []maps.CellTower{cellTower}, nil
}

// isValidMAC checks if the MAC address is in a valid format (e.g., "00:14:22:01:23:45").
func isValidMAC(mac string) bool {
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return false
	}
	for _, part := range parts {
		if len(part) != 2 {
			return false
		}
		if _, err := strconv.ParseUint(part, 16, 8); err != nil {
			return false
		}
	}
	return true
}
