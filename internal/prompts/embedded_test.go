package prompts

import "testing"

func TestLoadBuiltinPresets(t *testing.T) {
	presets, err := LoadBuiltinPresets()
	if err != nil {
		t.Fatalf("LoadBuiltinPresets failed: %v", err)
	}
	if len(presets) == 0 {
		t.Fatal("Expected at least one built-in preset")
	}

	for _, name := range []string{"assistant", "coder", "writer"} {
		preset, ok := presets[name]
		if !ok {
			t.Fatalf("Missing built-in preset %q", name)
		}
		if preset.Name != name {
			t.Fatalf("Preset name not set during loading: %q", preset.Name)
		}
		if preset.Instruction == "" {
			t.Fatalf("Preset %q has no instruction", name)
		}
	}
}

func TestPresetNamesSorted(t *testing.T) {
	presets := PresetMap{
		"zeta":  {Name: "zeta"},
		"alpha": {Name: "alpha"},
	}
	names := presets.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("Expected sorted names, got %v", names)
	}
}
