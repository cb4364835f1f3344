package device

import (
	"encoding/json"
	"fmt"
)

// RealtimeInfo is the telemetry record pushed over the relay stream.
// Wire keys are the firmware's m-prefixed mnemonics. Exchanger fields
// come in pairs because twin-tank models report both columns.
//
// mremregstep and mregstatus describe the running regeneration, but
// their numeric relationship varies across firmware revisions; both are
// passed through untouched. RegenerationStep labels the status code for
// display.
type RealtimeInfo struct {
	// Soft water meters [l]
	SoftWaterQuantity  *int `json:"mcountwater1,omitempty"`
	SoftWaterQuantity2 *int `json:"mcountwater2,omitempty"`

	// Regeneration counter
	RegenerationCounter *int `json:"mcountreg,omitempty"`

	// Flow rates [m³/h]
	CurrentFlowRate  *float64 `json:"mflow1,omitempty"`
	CurrentFlowRate2 *float64 `json:"mflow2,omitempty"`

	// Remaining capacity [m³] and [%]
	RemainingCapacityVolume   *float64 `json:"mrescapa1,omitempty"`
	RemainingCapacityVolume2  *float64 `json:"mrescapa2,omitempty"`
	RemainingCapacityPercent  *int     `json:"mresidcap1,omitempty"`
	RemainingCapacityPercent2 *int     `json:"mresidcap2,omitempty"`

	// Salt reach [days] and consumption [kg]
	SaltRange       *int     `json:"msaltrange,omitempty"`
	SaltConsumption *float64 `json:"msaltusage,omitempty"`

	// Next service due [days]
	NextServiceIn *int `json:"mmaint,omitempty"`

	// Running regeneration, opaque passthrough
	RegenerationRemaining *float64 `json:"mremregstep,omitempty"`
	RegenerationStepCode  *int     `json:"mregstatus,omitempty"`

	// Make-up water volume [l]
	MakeUpWaterVolume *int `json:"mcountwatertank,omitempty"`

	// Adsorber state [%] and remaining water [m³]
	AdsorberExhaustedPercent *int     `json:"mlifeadsorb,omitempty"`
	RemainingAdsorberWater   *float64 `json:"mreswatadmod,omitempty"`

	// Measured soft water hardness [°dH]
	ActualSoftWaterHardness *int `json:"mhardsoftw,omitempty"`

	// Capacity figure [m³ × °dH]
	CapacityFigure *float64 `json:"mcapacity,omitempty"`

	// Flow rate peaks [m³/h]
	FlowRatePeak   *float64 `json:"mflowmax,omitempty"`
	ExchangerPeak  *float64 `json:"mflowmax1reg2,omitempty"`
	ExchangerPeak2 *float64 `json:"mflowmax2reg1,omitempty"`

	// Last regeneration per exchanger [hh:mm]
	LastRegeneration  *Clock `json:"mendreg1,omitempty"`
	LastRegeneration2 *Clock `json:"mendreg2,omitempty"`

	// Regeneration flow rates [l/h]
	RegenerationFlowRate  *int `json:"mflowreg1,omitempty"`
	RegenerationFlowRate2 *int `json:"mflowreg2,omitempty"`

	// Blending flow rate [m³/h]
	BlendingFlowRate *float64 `json:"mflowblend,omitempty"`

	// Regeneration valve step indications
	StepIndicationValve  *int `json:"mstep1,omitempty"`
	StepIndicationValve2 *int `json:"mstep2,omitempty"`

	// Chlorine cell current [mA]
	CurrentChlorine *int `json:"mcurrent,omitempty"`
}

// Merge folds one telemetry update into the record. Fields absent from
// raw keep their previous values; present fields are replaced by pointer
// swap, so copies of the record taken before the merge are unaffected.
func (r *RealtimeInfo) Merge(raw []byte) error {
	var in RealtimeInfo
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("parse telemetry update: %w", err)
	}
	r.overlay(&in)
	return nil
}

func (r *RealtimeInfo) overlay(in *RealtimeInfo) {
	if in.SoftWaterQuantity != nil {
		r.SoftWaterQuantity = in.SoftWaterQuantity
	}
	if in.SoftWaterQuantity2 != nil {
		r.SoftWaterQuantity2 = in.SoftWaterQuantity2
	}
	if in.RegenerationCounter != nil {
		r.RegenerationCounter = in.RegenerationCounter
	}
	if in.CurrentFlowRate != nil {
		r.CurrentFlowRate = in.CurrentFlowRate
	}
	if in.CurrentFlowRate2 != nil {
		r.CurrentFlowRate2 = in.CurrentFlowRate2
	}
	if in.RemainingCapacityVolume != nil {
		r.RemainingCapacityVolume = in.RemainingCapacityVolume
	}
	if in.RemainingCapacityVolume2 != nil {
		r.RemainingCapacityVolume2 = in.RemainingCapacityVolume2
	}
	if in.RemainingCapacityPercent != nil {
		r.RemainingCapacityPercent = in.RemainingCapacityPercent
	}
	if in.RemainingCapacityPercent2 != nil {
		r.RemainingCapacityPercent2 = in.RemainingCapacityPercent2
	}
	if in.SaltRange != nil {
		r.SaltRange = in.SaltRange
	}
	if in.SaltConsumption != nil {
		r.SaltConsumption = in.SaltConsumption
	}
	if in.NextServiceIn != nil {
		r.NextServiceIn = in.NextServiceIn
	}
	if in.RegenerationRemaining != nil {
		r.RegenerationRemaining = in.RegenerationRemaining
	}
	if in.RegenerationStepCode != nil {
		r.RegenerationStepCode = in.RegenerationStepCode
	}
	if in.MakeUpWaterVolume != nil {
		r.MakeUpWaterVolume = in.MakeUpWaterVolume
	}
	if in.AdsorberExhaustedPercent != nil {
		r.AdsorberExhaustedPercent = in.AdsorberExhaustedPercent
	}
	if in.RemainingAdsorberWater != nil {
		r.RemainingAdsorberWater = in.RemainingAdsorberWater
	}
	if in.ActualSoftWaterHardness != nil {
		r.ActualSoftWaterHardness = in.ActualSoftWaterHardness
	}
	if in.CapacityFigure != nil {
		r.CapacityFigure = in.CapacityFigure
	}
	if in.FlowRatePeak != nil {
		r.FlowRatePeak = in.FlowRatePeak
	}
	if in.ExchangerPeak != nil {
		r.ExchangerPeak = in.ExchangerPeak
	}
	if in.ExchangerPeak2 != nil {
		r.ExchangerPeak2 = in.ExchangerPeak2
	}
	if in.LastRegeneration != nil {
		r.LastRegeneration = in.LastRegeneration
	}
	if in.LastRegeneration2 != nil {
		r.LastRegeneration2 = in.LastRegeneration2
	}
	if in.RegenerationFlowRate != nil {
		r.RegenerationFlowRate = in.RegenerationFlowRate
	}
	if in.RegenerationFlowRate2 != nil {
		r.RegenerationFlowRate2 = in.RegenerationFlowRate2
	}
	if in.BlendingFlowRate != nil {
		r.BlendingFlowRate = in.BlendingFlowRate
	}
	if in.StepIndicationValve != nil {
		r.StepIndicationValve = in.StepIndicationValve
	}
	if in.StepIndicationValve2 != nil {
		r.StepIndicationValve2 = in.StepIndicationValve2
	}
	if in.CurrentChlorine != nil {
		r.CurrentChlorine = in.CurrentChlorine
	}
}
