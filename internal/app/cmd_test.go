package app

import (
	"testing"
)

func TestParseCommand_DefaultsToStatus(t *testing.T) {
	cmd := ParseCommand([]string{})
	if cmd != CommandStatus {
		t.Errorf("ParseCommand([]) = %q, want %q", cmd, CommandStatus)
	}
}

func TestParseCommand_Status(t *testing.T) {
	cmd := ParseCommand([]string{"status"})
	if cmd != CommandStatus {
		t.Errorf("ParseCommand([status]) = %q, want %q", cmd, CommandStatus)
	}
}

func TestParseCommand_Stub(t *testing.T) {
	cmd := ParseCommand([]string{"stub"})
	if cmd != CommandStub {
		t.Errorf("ParseCommand([stub]) = %q, want %q", cmd, CommandStub)
	}
}

func TestParseCommand_Healthcheck(t *testing.T) {
	cmd := ParseCommand([]string{"healthcheck"})
	if cmd != CommandHealthcheck {
		t.Errorf("ParseCommand([healthcheck]) = %q, want %q", cmd, CommandHealthcheck)
	}
}

func TestParseCommand_UnknownDefaultsToStatus(t *testing.T) {
	cmd := ParseCommand([]string{"unknown"})
	if cmd != CommandStatus {
		t.Errorf("ParseCommand([unknown]) = %q, want %q", cmd, CommandStatus)
	}
}
