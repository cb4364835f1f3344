package device

import (
	"encoding/json"
	"testing"
)

// Trimmed from a live parameter document. phunit and pled carry the
// firmware's literal false for never-set enum parameters.
const parameterDocument = `{
  "pdlstauto": false,
  "pbuzzer": true,
  "pbuzzfrom": "08:00",
  "pbuzzto": "20:00",
  "pallowpushnotification": false,
  "pallowemail": false,
  "phunit": false,
  "prawhard": 18,
  "psetsoft": 4,
  "pmode": 2,
  "pmodemo": false,
  "pregmode": 0,
  "pregmo1": "--:--",
  "pregmo2": "04:30",
  "pregmo3": "--:--",
  "pmaintint": 365,
  "pname": "Mustermann",
  "ptelnr": "+49 1234 5678",
  "pmailadress": "service@example.test",
  "pntpsync": true,
  "pled": false,
  "pledbright": 60,
  "pnomflow": 2.0,
  "prinsing": 0.5,
  "pbackwash": 22,
  "planguage": 1,
  "ppressurereg": 0
}`

func TestParseParameters(t *testing.T) {
	p, err := ParseParameters([]byte(parameterDocument))
	if err != nil {
		t.Fatalf("ParseParameters() error = %v", err)
	}

	if p.Buzzer == nil || !*p.Buzzer {
		t.Errorf("Buzzer = %v, want true", p.Buzzer)
	}
	if p.BuzzerFrom == nil || p.BuzzerFrom.String() != "08:00" {
		t.Errorf("BuzzerFrom = %v, want 08:00", p.BuzzerFrom)
	}
	if p.RawWaterHardness == nil || *p.RawWaterHardness != 18 {
		t.Errorf("RawWaterHardness = %v, want 18", p.RawWaterHardness)
	}
	if p.Mode == nil || *p.Mode != OperationModeComfort {
		t.Errorf("Mode = %v, want Comfort", p.Mode)
	}
	if p.SlowRinse == nil || *p.SlowRinse != 0.5 {
		t.Errorf("SlowRinse = %v, want 0.5", p.SlowRinse)
	}
	if p.Language == nil || *p.Language != LanguageGerman {
		t.Errorf("Language = %v, want German", p.Language)
	}

	// Never-set enums arrive as literal false and decode to the
	// family's first code.
	if p.WaterHardnessUnit == nil || *p.WaterHardnessUnit != WaterUnitDH {
		t.Errorf("WaterHardnessUnit = %v, want °dH fallback", p.WaterHardnessUnit)
	}
	if p.ModeMonday == nil || *p.ModeMonday != OperationModeEco {
		t.Errorf("ModeMonday = %v, want Eco fallback", p.ModeMonday)
	}
	if p.LEDRingMode == nil || *p.LEDRingMode != LEDOff {
		t.Errorf("LEDRingMode = %v, want Deactivated fallback", p.LEDRingMode)
	}

	// Schedule slots: "--:--" parses to an unset clock, not an error.
	if p.RegenerationMonday1 == nil || p.RegenerationMonday1.IsSet() {
		t.Errorf("RegenerationMonday1 = %v, want unset", p.RegenerationMonday1)
	}
	if p.RegenerationMonday2 == nil || p.RegenerationMonday2.String() != "04:30" {
		t.Errorf("RegenerationMonday2 = %v, want 04:30", p.RegenerationMonday2)
	}

	// Keys absent from the document stay nil.
	if p.KNX != nil {
		t.Errorf("KNX = %v, want nil for absent key", p.KNX)
	}
}

func TestParameterPatchDiff(t *testing.T) {
	current, err := ParseParameters([]byte(parameterDocument))
	if err != nil {
		t.Fatalf("ParseParameters() error = %v", err)
	}

	intp := func(v int) *int { return &v }
	boolp := func(v bool) *bool { return &v }
	modep := func(v OperationMode) *OperationMode { return &v }
	clockp := func(v Clock) *Clock { return &v }

	tests := []struct {
		name  string
		patch ParameterPatch
		want  map[string]any
	}{
		{
			name:  "empty patch",
			patch: ParameterPatch{},
			want:  map[string]any{},
		},
		{
			name:  "same values produce no diff",
			patch: ParameterPatch{Mode: modep(OperationModeComfort), RawWaterHardness: intp(18)},
			want:  map[string]any{},
		},
		{
			name:  "changed mode",
			patch: ParameterPatch{Mode: modep(OperationModeEco)},
			want:  map[string]any{"pmode": OperationModeEco},
		},
		{
			name: "mixed changed and unchanged",
			patch: ParameterPatch{
				Mode:             modep(OperationModeComfort), // unchanged
				RawWaterHardness: intp(20),                    // changed
				Buzzer:           boolp(false),                // changed
			},
			want: map[string]any{"prawhard": 20, "pbuzzer": false},
		},
		{
			name:  "field the device never reported",
			patch: ParameterPatch{KNX: boolp(true)},
			want:  map[string]any{"pknx": true},
		},
		{
			name:  "filling an empty schedule slot",
			patch: ParameterPatch{RegenerationMonday1: clockp(NewClock(4, 30))},
			want:  map[string]any{"pregmo1": NewClock(4, 30)},
		},
		{
			name:  "clearing a filled schedule slot",
			patch: ParameterPatch{RegenerationMonday2: clockp(Clock{})},
			want:  map[string]any{"pregmo2": Clock{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.patch.Diff(current)
			if len(got) != len(tt.want) {
				t.Fatalf("Diff() = %v, want %v", got, tt.want)
			}
			for key, want := range tt.want {
				if got[key] != want {
					t.Errorf("Diff()[%q] = %v, want %v", key, got[key], want)
				}
			}
		})
	}
}

func TestParameterPatchDiffNilCurrent(t *testing.T) {
	mode := OperationModePower
	patch := ParameterPatch{Mode: &mode}
	got := patch.Diff(nil)
	if len(got) != 1 || got["pmode"] != OperationModePower {
		t.Errorf("Diff(nil) = %v, want pmode only", got)
	}
}

func TestDiffSerializesForWire(t *testing.T) {
	patch := ParameterPatch{
		RegenerationMonday1: func() *Clock { c := NewClock(4, 30); return &c }(),
		RegenerationMonday2: &Clock{},
		Mode:                func() *OperationMode { m := OperationModeEco; return &m }(),
	}

	body, err := json.Marshal(patch.Diff(nil))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(body, &wire); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if wire["pregmo1"] != "04:30" {
		t.Errorf("pregmo1 = %v, want \"04:30\"", wire["pregmo1"])
	}
	if v, present := wire["pregmo2"]; !present || v != nil {
		t.Errorf("pregmo2 = %v (present=%v), want explicit null", v, present)
	}
	if wire["pmode"] != float64(1) {
		t.Errorf("pmode = %v, want 1", wire["pmode"])
	}
}

func BenchmarkParameterDiff(b *testing.B) {
	current, err := ParseParameters([]byte(parameterDocument))
	if err != nil {
		b.Fatal(err)
	}
	hardness := 20
	patch := ParameterPatch{RawWaterHardness: &hardness}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		patch.Diff(current)
	}
}
