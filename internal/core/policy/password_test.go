package policy

import (
	"strings"
	"testing"
)

func TestValidatePassword_Valid(t *testing.T) {
	check := ValidatePassword("Str0ng!pass")
	if !check.Valid {
		t.Fatalf("expected valid, got violations: %v", check.Errors)
	}
	if len(check.Errors) != 0 {
		t.Fatalf("valid password must carry no errors, got %v", check.Errors)
	}
}

func TestValidatePassword_CollectsAllViolations(t *testing.T) {
	// Long enough and lowercase-only: exactly three rules fail.
	check := ValidatePassword("aaaaaaaa")
	if check.Valid {
		t.Fatalf("expected invalid")
	}
	if len(check.Errors) != 3 {
		t.Fatalf("expected 3 violations, got %d: %v", len(check.Errors), check.Errors)
	}
	for _, want := range []string{"uppercase", "number", "special"} {
		found := false
		for _, e := range check.Errors {
			if strings.Contains(e, want) {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing %q violation in %v", want, check.Errors)
		}
	}
}

func TestValidatePassword_AllRulesFail(t *testing.T) {
	check := ValidatePassword("")
	if check.Valid {
		t.Fatalf("expected invalid")
	}
	if len(check.Errors) != 5 {
		t.Fatalf("expected 5 violations for empty password, got %d: %v", len(check.Errors), check.Errors)
	}
}

func TestValidatePassword_TooShortButOtherwiseComplete(t *testing.T) {
	check := ValidatePassword("Ab1!")
	if check.Valid {
		t.Fatalf("expected invalid")
	}
	if len(check.Errors) != 1 {
		t.Fatalf("expected only the length violation, got %v", check.Errors)
	}
	if !strings.Contains(check.Errors[0], "at least 8 characters") {
		t.Fatalf("unexpected violation: %s", check.Errors[0])
	}
}

func TestValidatePassword_SpecialCharacterSet(t *testing.T) {
	for _, r := range passwordSpecials {
		pw := "Abcdef1" + string(r)
		if check := ValidatePassword(pw); !check.Valid {
			t.Fatalf("special %q not accepted: %v", r, check.Errors)
		}
	}

	// A character outside the accepted set does not satisfy the special rule.
	check := ValidatePassword("Abcdefg1§")
	if check.Valid {
		t.Fatalf("expected § to miss the special-character rule")
	}
}
