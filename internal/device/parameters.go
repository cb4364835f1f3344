package device

import (
	"encoding/json"
	"fmt"
)

// Parameters is the user-settable configuration record of a softliQ
// device. Wire keys are the firmware's p-prefixed mnemonics; a nil field
// means the document did not carry the key. Units are noted where the
// mnemonic does not make them obvious.
type Parameters struct {
	// Daylight saving time
	DaylightSavingTime *bool `json:"pdlstauto,omitempty"`

	// Audio signal on error plus its release window
	Buzzer     *bool  `json:"pbuzzer,omitempty"`
	BuzzerFrom *Clock `json:"pbuzzfrom,omitempty"`
	BuzzerTo   *Clock `json:"pbuzzto,omitempty"`

	// Notification channels
	PushNotification  *bool `json:"pallowpushnotification,omitempty"`
	EmailNotification *bool `json:"pallowemail,omitempty"`

	// Water hardness settings
	WaterHardnessUnit *WaterUnit `json:"phunit,omitempty"`
	RawWaterHardness  *int       `json:"prawhard,omitempty"`
	SoftWaterHardness *int       `json:"psetsoft,omitempty"`

	// Working mode, plus the per-day schedule used by the Individual mode
	Mode          *OperationMode `json:"pmode,omitempty"`
	ModeMonday    *OperationMode `json:"pmodemo,omitempty"`
	ModeTuesday   *OperationMode `json:"pmodetu,omitempty"`
	ModeWednesday *OperationMode `json:"pmodewe,omitempty"`
	ModeThursday  *OperationMode `json:"pmodeth,omitempty"`
	ModeFriday    *OperationMode `json:"pmodefr,omitempty"`
	ModeSaturday  *OperationMode `json:"pmodesa,omitempty"`
	ModeSunday    *OperationMode `json:"pmodesu,omitempty"`

	// Regeneration schedule: mode plus three slots per weekday
	RegenerationMode *RegenerationMode `json:"pregmode,omitempty"`

	RegenerationMonday1    *Clock `json:"pregmo1,omitempty"`
	RegenerationMonday2    *Clock `json:"pregmo2,omitempty"`
	RegenerationMonday3    *Clock `json:"pregmo3,omitempty"`
	RegenerationTuesday1   *Clock `json:"pregtu1,omitempty"`
	RegenerationTuesday2   *Clock `json:"pregtu2,omitempty"`
	RegenerationTuesday3   *Clock `json:"pregtu3,omitempty"`
	RegenerationWednesday1 *Clock `json:"pregwe1,omitempty"`
	RegenerationWednesday2 *Clock `json:"pregwe2,omitempty"`
	RegenerationWednesday3 *Clock `json:"pregwe3,omitempty"`
	RegenerationThursday1  *Clock `json:"pregth1,omitempty"`
	RegenerationThursday2  *Clock `json:"pregth2,omitempty"`
	RegenerationThursday3  *Clock `json:"pregth3,omitempty"`
	RegenerationFriday1    *Clock `json:"pregfr1,omitempty"`
	RegenerationFriday2    *Clock `json:"pregfr2,omitempty"`
	RegenerationFriday3    *Clock `json:"pregfr3,omitempty"`
	RegenerationSaturday1  *Clock `json:"pregsa1,omitempty"`
	RegenerationSaturday2  *Clock `json:"pregsa2,omitempty"`
	RegenerationSaturday3  *Clock `json:"pregsa3,omitempty"`
	RegenerationSunday1    *Clock `json:"pregsu1,omitempty"`
	RegenerationSunday2    *Clock `json:"pregsu2,omitempty"`
	RegenerationSunday3    *Clock `json:"pregsu3,omitempty"`

	// Maintenance interval [days] and installer contact data
	MaintenanceInterval *int    `json:"pmaintint,omitempty"`
	InstallerName       *string `json:"pname,omitempty"`
	InstallerPhone      *string `json:"ptelnr,omitempty"`
	InstallerEmail      *string `json:"pmailadress,omitempty"`

	// Clock from NTP
	NTPSync *bool `json:"pntpsync,omitempty"`

	// Fault signal contact function
	FaultSignalContact *bool `json:"pcfcontact,omitempty"`

	// KNX bus connection
	KNX *bool `json:"pknx,omitempty"`

	// Monitoring switches
	NominalFlowMonitoring  *bool `json:"pmonflow,omitempty"`
	DisinfectionMonitoring *bool `json:"pmondisinf,omitempty"`

	// Illuminated LED ring
	LEDRingMode          *LEDMode `json:"pled,omitempty"`
	LEDRingFlashOnSignal *bool    `json:"pledatsaltpre,omitempty"`
	LEDRingBrightness    *int     `json:"pledbright,omitempty"` // [%]

	// Residual capacity limit [%]
	ResidualCapacityLimit *int `json:"prescaplimit,omitempty"`

	// Electrolysis current setpoint [mA] and charge [mAmin]
	CurrentSetpoint *int `json:"pcurrent,omitempty"`
	Charge          *int `json:"pload,omitempty"`

	// Interval of forced regeneration [days]
	ForcedRegenerationInterval *int `json:"pforcedregdist,omitempty"`

	// Valve end frequencies [Hz]
	EndFrequencyRegenerationValve  *int `json:"pfreqregvalve,omitempty"`
	EndFrequencyRegenerationValve2 *int `json:"pfreqregvalve2,omitempty"`
	EndFrequencyBlendingValve      *int `json:"pfreqblendvalve,omitempty"`

	// Treatment volume [m³]
	TreatmentVolume *int `json:"pvolume,omitempty"`

	// Water meter pulse rates [l/Imp]
	SoftWaterMeterPulseRate     *float64 `json:"ppratesoftwater,omitempty"`
	BlendingWaterMeterPulseRate *float64 `json:"pprateblending,omitempty"`
	RegenerationMeterPulseRate  *float64 `json:"pprateregwater,omitempty"`

	// Capacity figures per weekday [m³ × °dH]
	CapacityMonday    *int `json:"psetcapmo,omitempty"`
	CapacityTuesday   *int `json:"psetcaptu,omitempty"`
	CapacityWednesday *int `json:"psetcapwe,omitempty"`
	CapacityThursday  *int `json:"psetcapth,omitempty"`
	CapacityFriday    *int `json:"psetcapfr,omitempty"`
	CapacitySaturday  *int `json:"psetcapsa,omitempty"`
	CapacitySunday    *int `json:"psetcapsu,omitempty"`

	// Nominal flow rate [m³/h]
	NominalFlowRate *float64 `json:"pnomflow,omitempty"`

	// Monitoring times [min]
	RegenerationMonitoringTime *int `json:"pmonregmeter,omitempty"`
	SaltingMonitoringTime      *int `json:"pmonsalting,omitempty"`

	// Regeneration water amounts: slow rinse [min], backwash and washing
	// out [l]
	SlowRinse  *float64 `json:"prinsing,omitempty"`
	Backwash   *int     `json:"pbackwash,omitempty"`
	WashingOut *int     `json:"pwashingout,omitempty"`

	// Brine tank filling volumes [l]
	MinFillingVolumeSmallestCap *float64 `json:"pminvolmincap,omitempty"`
	MaxFillingVolumeSmallestCap *float64 `json:"pmaxvolmincap,omitempty"`
	MinFillingVolumeLargestCap  *float64 `json:"pminvolmaxcap,omitempty"`
	MaxFillingVolumeLargestCap  *float64 `json:"pmaxvolmaxcap,omitempty"`

	// Chlorine cell limits [min]
	MaxChlorineCellOnTime        *int `json:"pmaxdurdisinfect,omitempty"`
	MaxRegenerationRemainingTime *int `json:"pmaxresdurreg,omitempty"`

	// Control panel language
	Language *Language `json:"planguage,omitempty"`

	// Programmable I/O functions
	ProgrammableOutput *int `json:"pprogout,omitempty"`
	ProgrammableInput  *int `json:"pprogin,omitempty"`

	// Reaction to power failures longer than five minutes
	PowerFailureReaction *int `json:"ppowerfail,omitempty"`

	// Chlorine cell activation
	ChlorineCellMode *int `json:"pmodedesinf,omitempty"`

	// Blending and overload monitoring
	BlendingMonitoring *int `json:"pmonblend,omitempty"`
	SystemOverloaded   *int `json:"poverload,omitempty"`

	// Reported by newer firmware; meaning undocumented
	PressureRegistration *int `json:"ppressurereg,omitempty"`
}

// ParseParameters parses a parameter document.
func ParseParameters(data []byte) (*Parameters, error) {
	var p Parameters
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse parameter document: %w", err)
	}
	return &p, nil
}

// ParameterPatch is a partial parameter update. Nil fields are left
// alone; set fields are compared against the device's current record and
// only genuine changes reach the wire.
type ParameterPatch Parameters

// Diff returns the wire-key map of fields that differ between the patch
// and current. A nil current treats every set field as changed. An empty
// map means there is nothing to send.
func (p *ParameterPatch) Diff(current *Parameters) map[string]any {
	changed := make(map[string]any)
	if current == nil {
		current = &Parameters{}
	}

	diffValue(changed, "pdlstauto", p.DaylightSavingTime, current.DaylightSavingTime)
	diffValue(changed, "pbuzzer", p.Buzzer, current.Buzzer)
	diffValue(changed, "pbuzzfrom", p.BuzzerFrom, current.BuzzerFrom)
	diffValue(changed, "pbuzzto", p.BuzzerTo, current.BuzzerTo)
	diffValue(changed, "pallowpushnotification", p.PushNotification, current.PushNotification)
	diffValue(changed, "pallowemail", p.EmailNotification, current.EmailNotification)
	diffValue(changed, "phunit", p.WaterHardnessUnit, current.WaterHardnessUnit)
	diffValue(changed, "prawhard", p.RawWaterHardness, current.RawWaterHardness)
	diffValue(changed, "psetsoft", p.SoftWaterHardness, current.SoftWaterHardness)
	diffValue(changed, "pmode", p.Mode, current.Mode)
	diffValue(changed, "pmodemo", p.ModeMonday, current.ModeMonday)
	diffValue(changed, "pmodetu", p.ModeTuesday, current.ModeTuesday)
	diffValue(changed, "pmodewe", p.ModeWednesday, current.ModeWednesday)
	diffValue(changed, "pmodeth", p.ModeThursday, current.ModeThursday)
	diffValue(changed, "pmodefr", p.ModeFriday, current.ModeFriday)
	diffValue(changed, "pmodesa", p.ModeSaturday, current.ModeSaturday)
	diffValue(changed, "pmodesu", p.ModeSunday, current.ModeSunday)
	diffValue(changed, "pregmode", p.RegenerationMode, current.RegenerationMode)
	diffValue(changed, "pregmo1", p.RegenerationMonday1, current.RegenerationMonday1)
	diffValue(changed, "pregmo2", p.RegenerationMonday2, current.RegenerationMonday2)
	diffValue(changed, "pregmo3", p.RegenerationMonday3, current.RegenerationMonday3)
	diffValue(changed, "pregtu1", p.RegenerationTuesday1, current.RegenerationTuesday1)
	diffValue(changed, "pregtu2", p.RegenerationTuesday2, current.RegenerationTuesday2)
	diffValue(changed, "pregtu3", p.RegenerationTuesday3, current.RegenerationTuesday3)
	diffValue(changed, "pregwe1", p.RegenerationWednesday1, current.RegenerationWednesday1)
	diffValue(changed, "pregwe2", p.RegenerationWednesday2, current.RegenerationWednesday2)
	diffValue(changed, "pregwe3", p.RegenerationWednesday3, current.RegenerationWednesday3)
	diffValue(changed, "pregth1", p.RegenerationThursday1, current.RegenerationThursday1)
	diffValue(changed, "pregth2", p.RegenerationThursday2, current.RegenerationThursday2)
	diffValue(changed, "pregth3", p.RegenerationThursday3, current.RegenerationThursday3)
	diffValue(changed, "pregfr1", p.RegenerationFriday1, current.RegenerationFriday1)
	diffValue(changed, "pregfr2", p.RegenerationFriday2, current.RegenerationFriday2)
	diffValue(changed, "pregfr3", p.RegenerationFriday3, current.RegenerationFriday3)
	diffValue(changed, "pregsa1", p.RegenerationSaturday1, current.RegenerationSaturday1)
	diffValue(changed, "pregsa2", p.RegenerationSaturday2, current.RegenerationSaturday2)
	diffValue(changed, "pregsa3", p.RegenerationSaturday3, current.RegenerationSaturday3)
	diffValue(changed, "pregsu1", p.RegenerationSunday1, current.RegenerationSunday1)
	diffValue(changed, "pregsu2", p.RegenerationSunday2, current.RegenerationSunday2)
	diffValue(changed, "pregsu3", p.RegenerationSunday3, current.RegenerationSunday3)
	diffValue(changed, "pmaintint", p.MaintenanceInterval, current.MaintenanceInterval)
	diffValue(changed, "pname", p.InstallerName, current.InstallerName)
	diffValue(changed, "ptelnr", p.InstallerPhone, current.InstallerPhone)
	diffValue(changed, "pmailadress", p.InstallerEmail, current.InstallerEmail)
	diffValue(changed, "pntpsync", p.NTPSync, current.NTPSync)
	diffValue(changed, "pcfcontact", p.FaultSignalContact, current.FaultSignalContact)
	diffValue(changed, "pknx", p.KNX, current.KNX)
	diffValue(changed, "pmonflow", p.NominalFlowMonitoring, current.NominalFlowMonitoring)
	diffValue(changed, "pmondisinf", p.DisinfectionMonitoring, current.DisinfectionMonitoring)
	diffValue(changed, "pled", p.LEDRingMode, current.LEDRingMode)
	diffValue(changed, "pledatsaltpre", p.LEDRingFlashOnSignal, current.LEDRingFlashOnSignal)
	diffValue(changed, "pledbright", p.LEDRingBrightness, current.LEDRingBrightness)
	diffValue(changed, "prescaplimit", p.ResidualCapacityLimit, current.ResidualCapacityLimit)
	diffValue(changed, "pcurrent", p.CurrentSetpoint, current.CurrentSetpoint)
	diffValue(changed, "pload", p.Charge, current.Charge)
	diffValue(changed, "pforcedregdist", p.ForcedRegenerationInterval, current.ForcedRegenerationInterval)
	diffValue(changed, "pfreqregvalve", p.EndFrequencyRegenerationValve, current.EndFrequencyRegenerationValve)
	diffValue(changed, "pfreqregvalve2", p.EndFrequencyRegenerationValve2, current.EndFrequencyRegenerationValve2)
	diffValue(changed, "pfreqblendvalve", p.EndFrequencyBlendingValve, current.EndFrequencyBlendingValve)
	diffValue(changed, "pvolume", p.TreatmentVolume, current.TreatmentVolume)
	diffValue(changed, "ppratesoftwater", p.SoftWaterMeterPulseRate, current.SoftWaterMeterPulseRate)
	diffValue(changed, "pprateblending", p.BlendingWaterMeterPulseRate, current.BlendingWaterMeterPulseRate)
	diffValue(changed, "pprateregwater", p.RegenerationMeterPulseRate, current.RegenerationMeterPulseRate)
	diffValue(changed, "psetcapmo", p.CapacityMonday, current.CapacityMonday)
	diffValue(changed, "psetcaptu", p.CapacityTuesday, current.CapacityTuesday)
	diffValue(changed, "psetcapwe", p.CapacityWednesday, current.CapacityWednesday)
	diffValue(changed, "psetcapth", p.CapacityThursday, current.CapacityThursday)
	diffValue(changed, "psetcapfr", p.CapacityFriday, current.CapacityFriday)
	diffValue(changed, "psetcapsa", p.CapacitySaturday, current.CapacitySaturday)
	diffValue(changed, "psetcapsu", p.CapacitySunday, current.CapacitySunday)
	diffValue(changed, "pnomflow", p.NominalFlowRate, current.NominalFlowRate)
	diffValue(changed, "pmonregmeter", p.RegenerationMonitoringTime, current.RegenerationMonitoringTime)
	diffValue(changed, "pmonsalting", p.SaltingMonitoringTime, current.SaltingMonitoringTime)
	diffValue(changed, "prinsing", p.SlowRinse, current.SlowRinse)
	diffValue(changed, "pbackwash", p.Backwash, current.Backwash)
	diffValue(changed, "pwashingout", p.WashingOut, current.WashingOut)
	diffValue(changed, "pminvolmincap", p.MinFillingVolumeSmallestCap, current.MinFillingVolumeSmallestCap)
	diffValue(changed, "pmaxvolmincap", p.MaxFillingVolumeSmallestCap, current.MaxFillingVolumeSmallestCap)
	diffValue(changed, "pminvolmaxcap", p.MinFillingVolumeLargestCap, current.MinFillingVolumeLargestCap)
	diffValue(changed, "pmaxvolmaxcap", p.MaxFillingVolumeLargestCap, current.MaxFillingVolumeLargestCap)
	diffValue(changed, "pmaxdurdisinfect", p.MaxChlorineCellOnTime, current.MaxChlorineCellOnTime)
	diffValue(changed, "pmaxresdurreg", p.MaxRegenerationRemainingTime, current.MaxRegenerationRemainingTime)
	diffValue(changed, "planguage", p.Language, current.Language)
	diffValue(changed, "pprogout", p.ProgrammableOutput, current.ProgrammableOutput)
	diffValue(changed, "pprogin", p.ProgrammableInput, current.ProgrammableInput)
	diffValue(changed, "ppowerfail", p.PowerFailureReaction, current.PowerFailureReaction)
	diffValue(changed, "pmodedesinf", p.ChlorineCellMode, current.ChlorineCellMode)
	diffValue(changed, "pmonblend", p.BlendingMonitoring, current.BlendingMonitoring)
	diffValue(changed, "poverload", p.SystemOverloaded, current.SystemOverloaded)
	diffValue(changed, "ppressurereg", p.PressureRegistration, current.PressureRegistration)

	return changed
}

// diffValue records key when the patch sets a value the device does not
// already have.
func diffValue[T comparable](changed map[string]any, key string, patch, current *T) {
	if patch == nil {
		return
	}
	if current != nil && *current == *patch {
		return
	}
	changed[key] = *patch
}
