package responder

import "testing"

func TestClassifyFamilies(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"why does this happen", "reasoning"},
		{"how do I get over this", "reasoning"},
		{"should I take that job", "reasoning"},
		{"my code throws an error message on deploy", "technical"},
		{"there's a bug in the api", "technical"},
		{"compare tea versus coffee for me", "analytical"},
		{"which one would you recommend", "analytical"},
		{"hi, how are you", "filler"},
		{"good morning!", "filler"},
		{"tell me something nice", "default"},
		{"", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Classify(tt.text, false); got.Name != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got.Name, tt.want)
			}
		})
	}
}

func TestClassifyPriorityStable(t *testing.T) {
	// Reasoning outranks technical no matter where the words sit.
	for _, text := range []string{
		"why is the database slow",
		"the database is slow, why",
	} {
		if got := Classify(text, false); got.Name != "reasoning" {
			t.Errorf("Classify(%q) = %s, want reasoning", text, got.Name)
		}
	}
}

func TestClassifySpecialVariantWarmer(t *testing.T) {
	for _, text := range []string{"why though", "hi there", "random talk"} {
		generic := Classify(text, false)
		special := Classify(text, true)
		if special.Temperature <= generic.Temperature {
			t.Errorf("Classify(%q): special temp %.2f not above generic %.2f",
				text, special.Temperature, generic.Temperature)
		}
		if special.Name != generic.Name || special.MaxTokens != generic.MaxTokens {
			t.Errorf("Classify(%q): variants diverge beyond warmth", text)
		}
	}
}

func TestClassifyPure(t *testing.T) {
	a := Classify("why does this happen", false)
	b := Classify("why does this happen", false)
	if a != b {
		t.Error("Classify not deterministic")
	}
}

func TestTierIncidentalCapsTokens(t *testing.T) {
	tier := Classify("why does this happen", false)
	capped := tier.Incidental()
	if capped.MaxTokens > incidentalTokenCap {
		t.Errorf("Incidental MaxTokens = %d, want <= %d", capped.MaxTokens, incidentalTokenCap)
	}
	if tier.MaxTokens <= incidentalTokenCap {
		t.Errorf("test premise broken: base tier already capped")
	}
}
