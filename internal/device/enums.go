package device

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeCode reads a numeric enum value from the wire. Parameters the
// device has never set arrive as literal false; those decode to the
// family's first code instead of failing the whole document.
func decodeCode(data []byte, fallback int) (int, error) {
	if string(bytes.TrimSpace(data)) == "false" {
		return fallback, nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return 0, fmt.Errorf("invalid enum code %s: %w", data, err)
	}
	return code, nil
}

func unknownLabel(code int) string {
	return fmt.Sprintf("Unknown (%d)", code)
}

// OperationMode is the softening working mode (pmode and the per-day
// individual modes).
type OperationMode int

const (
	OperationModeEco        OperationMode = 1
	OperationModeComfort    OperationMode = 2
	OperationModePower      OperationMode = 3
	OperationModeIndividual OperationMode = 4
)

var operationModeLabels = map[OperationMode]string{
	OperationModeEco:        "Eco",
	OperationModeComfort:    "Comfort",
	OperationModePower:      "Power",
	OperationModeIndividual: "Individual",
}

func (m OperationMode) String() string {
	if label, ok := operationModeLabels[m]; ok {
		return label
	}
	return unknownLabel(int(m))
}

func (m *OperationMode) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data, int(OperationModeEco))
	if err != nil {
		return err
	}
	*m = OperationMode(code)
	return nil
}

// RegenerationMode selects automatic or fixed-schedule regeneration
// (pregmode).
type RegenerationMode int

const (
	RegenerationAutomatic RegenerationMode = 0
	RegenerationFixed     RegenerationMode = 1
)

var regenerationModeLabels = map[RegenerationMode]string{
	RegenerationAutomatic: "Automatic",
	RegenerationFixed:     "Fixed",
}

func (m RegenerationMode) String() string {
	if label, ok := regenerationModeLabels[m]; ok {
		return label
	}
	return unknownLabel(int(m))
}

func (m *RegenerationMode) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data, int(RegenerationAutomatic))
	if err != nil {
		return err
	}
	*m = RegenerationMode(code)
	return nil
}

// WaterUnit is the hardness unit code (phunit, unit).
type WaterUnit int

const (
	WaterUnitDH    WaterUnit = 1
	WaterUnitFH    WaterUnit = 2
	WaterUnitE     WaterUnit = 3
	WaterUnitMolM3 WaterUnit = 4
	WaterUnitPPM   WaterUnit = 5
)

var waterUnitLabels = map[WaterUnit]string{
	WaterUnitDH:    "°dH",
	WaterUnitFH:    "°fH",
	WaterUnitE:     "°e",
	WaterUnitMolM3: "mol/m³",
	WaterUnitPPM:   "ppm",
}

func (u WaterUnit) String() string {
	if label, ok := waterUnitLabels[u]; ok {
		return label
	}
	return unknownLabel(int(u))
}

func (u *WaterUnit) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data, int(WaterUnitDH))
	if err != nil {
		return err
	}
	*u = WaterUnit(code)
	return nil
}

// LEDMode is the illuminated ring behaviour (pled).
type LEDMode int

const (
	LEDOff                        LEDMode = 0
	LEDPermanent                  LEDMode = 1
	LEDOnFailure                  LEDMode = 2
	LEDOnUserOrFailure            LEDMode = 3
	LEDOnTreatmentOrUserOrFailure LEDMode = 4
)

var ledModeLabels = map[LEDMode]string{
	LEDOff:                        "Deactivated",
	LEDPermanent:                  "Permanent lightning",
	LEDOnFailure:                  "In case of failure",
	LEDOnUserOrFailure:            "In case of operation by user + failure",
	LEDOnTreatmentOrUserOrFailure: "In case of water treatment + operation by user + failure",
}

func (m LEDMode) String() string {
	if label, ok := ledModeLabels[m]; ok {
		return label
	}
	return unknownLabel(int(m))
}

func (m *LEDMode) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data, int(LEDOff))
	if err != nil {
		return err
	}
	*m = LEDMode(code)
	return nil
}

// Language is the control-panel language code (planguage).
type Language int

const (
	LanguageGerman  Language = 1
	LanguageEnglish Language = 2
	LanguageFrench  Language = 3
	LanguageItalian Language = 4
	LanguageDutch   Language = 5
	LanguageSpanish Language = 6
	LanguageRussian Language = 7
	LanguageDanish  Language = 9
)

var languageLabels = map[Language]string{
	LanguageGerman:  "German",
	LanguageEnglish: "English",
	LanguageFrench:  "French",
	LanguageItalian: "Italian",
	LanguageDutch:   "Dutch",
	LanguageSpanish: "Spanish",
	LanguageRussian: "Russian",
	LanguageDanish:  "Danish",
}

func (l Language) String() string {
	if label, ok := languageLabels[l]; ok {
		return label
	}
	return unknownLabel(int(l))
}

func (l *Language) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data, int(LanguageGerman))
	if err != nil {
		return err
	}
	*l = Language(code)
	return nil
}

// RegenerationStep labels the mregstatus telemetry code. The telemetry
// record keeps the raw code; the firmware's numeric progression is not
// documented, so this is presentation only.
type RegenerationStep int

var regenerationStepLabels = map[RegenerationStep]string{
	0:  "Inactive",
	10: "Fill salt tank",
	20: "Salting",
	30: "Displacement",
	40: "Backwashing",
	50: "Backwashing",
	60: "Washing out",
}

func (s RegenerationStep) String() string {
	if label, ok := regenerationStepLabels[s]; ok {
		return label
	}
	return unknownLabel(int(s))
}
