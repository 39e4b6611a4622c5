package engine

import (
	"reflect"
	"testing"
)

func signaturesFor(t *testing.T, frags ...*ProjectConfig) *SignatureSet {
	t.Helper()
	root := frags[len(frags)-1].Name
	return ComputeSignatures(MergeAll(mustResolve(t, root, frags...)))
}

func TestComputeSignatures_PerProfileAndUnion(t *testing.T) {
	sigs := signaturesFor(t,
		fragment("app", nil, map[string]ProfileSecrets{
			DefaultProfile: {
				"DATABASE_URL": required(),
				"LOG_LEVEL":    withDefault(false, "info"),
				"SENTRY_DSN":   optional(),
			},
			"production": {
				"SENTRY_DSN": required(),
				"STRIPE_KEY": required(),
			},
		}),
	)

	if !reflect.DeepEqual(sigs.Profiles, []string{"default", "production"}) {
		t.Fatalf("Unexpected profiles: %v", sigs.Profiles)
	}

	tests := []struct {
		name       string
		def        ProfileSignature
		production ProfileSignature
		union      Presence
	}{
		{"DATABASE_URL", ProfileSignature{Presence: Mandatory}, ProfileSignature{Presence: Mandatory}, Mandatory},
		{"LOG_LEVEL", ProfileSignature{Presence: Optional}, ProfileSignature{Presence: Optional}, Optional},
		{"SENTRY_DSN", ProfileSignature{Presence: Optional}, ProfileSignature{Presence: Mandatory}, Optional},
		{"STRIPE_KEY", ProfileSignature{Presence: Optional, Absent: true}, ProfileSignature{Presence: Mandatory}, Optional},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ok := sigs.Get(tt.name)
			if !ok {
				t.Fatalf("signature for %s not found", tt.name)
			}
			if got := sig.Profiles["default"]; got != tt.def {
				t.Errorf("default: expected %+v, got %+v", tt.def, got)
			}
			if got := sig.Profiles["production"]; got != tt.production {
				t.Errorf("production: expected %+v, got %+v", tt.production, got)
			}
			if sig.Union != tt.union {
				t.Errorf("union: expected %s, got %s", tt.union, sig.Union)
			}
		})
	}
}

func TestComputeSignatures_RequiredWithDefaultIsOptional(t *testing.T) {
	sigs := signaturesFor(t,
		fragment("app", nil, map[string]ProfileSecrets{
			DefaultProfile: {"PORT": withDefault(true, "8080")},
		}),
	)

	sig, _ := sigs.Get("PORT")
	if sig.Profiles["default"].Presence != Optional {
		t.Errorf("Expected required secret with default to be optional, got %s", sig.Profiles["default"].Presence)
	}
	if sig.Union != Optional {
		t.Errorf("Expected optional union, got %s", sig.Union)
	}
}

func TestComputeSignatures_Identifier(t *testing.T) {
	sigs := signaturesFor(t,
		fragment("app", nil, map[string]ProfileSecrets{
			DefaultProfile: {"Api_KEY": {Description: "the key", Required: true}},
		}),
	)

	sig, _ := sigs.Get("Api_KEY")
	if sig.Identifier != "api_key" {
		t.Errorf("Expected identifier api_key, got %s", sig.Identifier)
	}
	if sig.Description != "the key" {
		t.Errorf("Expected description to be carried, got %q", sig.Description)
	}
}

func TestComputeSignatures_SortedAndDeterministic(t *testing.T) {
	frags := []*ProjectConfig{
		fragment("app", nil, map[string]ProfileSecrets{
			DefaultProfile: {"C": required(), "A": required(), "B": optional()},
			"dev":          {"D": optional()},
		}),
	}

	first := signaturesFor(t, frags...)
	for i := 0; i < 10; i++ {
		again := signaturesFor(t, frags...)
		if !reflect.DeepEqual(first, again) {
			t.Fatal("Expected identical signature sets across runs")
		}
	}

	var names []string
	for _, s := range first.Secrets {
		names = append(names, s.Name)
	}
	if !reflect.DeepEqual(names, []string{"A", "B", "C", "D"}) {
		t.Errorf("Expected sorted names, got %v", names)
	}
}

func TestComputeSignatures_Empty(t *testing.T) {
	sigs := ComputeSignatures(map[string]*EffectiveSecretSet{})
	if len(sigs.Secrets) != 0 || len(sigs.Profiles) != 0 {
		t.Errorf("Expected empty signature set, got %+v", sigs)
	}
	if _, ok := sigs.Get("X"); ok {
		t.Error("Expected no signature for X")
	}
}
