package modular

import (
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{Reason: "height mismatch"}
	if err.Error() != "block validation: height mismatch" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	// Direct.
	v, ok := IsValidation(err)
	if !ok {
		t.Fatal("expected IsValidation to return true")
	}
	if v.Reason != "height mismatch" {
		t.Errorf("unexpected reason: %s", v.Reason)
	}

	// Wrapped.
	wrapped := fmt.Errorf("propose: %w", err)
	if _, ok := IsValidation(wrapped); !ok {
		t.Fatal("expected IsValidation to unwrap wrapped error")
	}

	// Non-validation error.
	if _, ok := IsValidation(fmt.Errorf("just a regular error")); ok {
		t.Fatal("expected IsValidation to return false")
	}

	// Nil.
	if _, ok := IsValidation(nil); ok {
		t.Fatal("expected IsValidation to return false for nil")
	}
}

func TestGasLimitExceededError(t *testing.T) {
	err := &GasLimitExceededError{GasUsed: 1001, GasLimit: 1000}
	expected := "gas limit exceeded: used 1001 of 1000"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}

	g, ok := IsGasLimitExceeded(fmt.Errorf("execute: %w", err))
	if !ok {
		t.Fatal("expected IsGasLimitExceeded to unwrap")
	}
	if g.GasUsed != 1001 || g.GasLimit != 1000 {
		t.Errorf("unexpected fields: %+v", g)
	}
}

func TestIntegrityError(t *testing.T) {
	err := &IntegrityError{BatchID: "abc123", Reason: "count mismatch"}
	if _, ok := IsIntegrity(err); !ok {
		t.Fatal("expected IsIntegrity to return true")
	}
	if _, ok := IsIntegrity(fmt.Errorf("other")); ok {
		t.Fatal("expected IsIntegrity to return false")
	}
}

func TestConfigurationError(t *testing.T) {
	withField := &ConfigurationError{Layer: "consensus", Field: "difficulty", Reason: "must be positive"}
	if withField.Error() != "config consensus.difficulty: must be positive" {
		t.Errorf("unexpected message: %s", withField.Error())
	}

	noField := &ConfigurationError{Layer: "settlement", Reason: "missing block"}
	if noField.Error() != "config settlement: missing block" {
		t.Errorf("unexpected message: %s", noField.Error())
	}

	if _, ok := IsConfiguration(fmt.Errorf("load: %w", withField)); !ok {
		t.Fatal("expected IsConfiguration to unwrap")
	}
}
