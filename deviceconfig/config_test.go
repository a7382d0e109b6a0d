package deviceconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "device.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeTempConfig(t, `
role = "ValveCluster"
hardware_id = "0031FFFFFFFFFFFF4E45356740010017"
version = "e5938cd"
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Baud() != 115200 {
		t.Fatalf("Baud() = %d, want 115200", p.Baud())
	}
	if p.MaxMsgLen() != 127 {
		t.Fatalf("MaxMsgLen() = %d, want 127", p.MaxMsgLen())
	}
	if p.DefaultSigFigs() != 6 {
		t.Fatalf("DefaultSigFigs() = %d, want 6", p.DefaultSigFigs())
	}
	if p.Role() != "ValveCluster" {
		t.Fatalf("Role() = %q, want ValveCluster", p.Role())
	}
	if p.Version() != "e5938cd" {
		t.Fatalf("Version() = %q, want e5938cd", p.Version())
	}
}

func TestLoadOverridesEveryField(t *testing.T) {
	path := writeTempConfig(t, `
role = "Pump"
hardware_id = "abc123"
version = "1.2"
instance_index = 3
baud = 57600
max_msg_len = 64
default_sig_figs = 4
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.InstanceIndex() != 3 {
		t.Fatalf("InstanceIndex() = %d, want 3", p.InstanceIndex())
	}
	if p.Baud() != 57600 {
		t.Fatalf("Baud() = %d, want 57600", p.Baud())
	}
	if p.MaxMsgLen() != 64 {
		t.Fatalf("MaxMsgLen() = %d, want 64", p.MaxMsgLen())
	}
	if p.DefaultSigFigs() != 4 {
		t.Fatalf("DefaultSigFigs() = %d, want 4", p.DefaultSigFigs())
	}
}

func TestLoadFallsBackToDefaultRoleAndHardwareID(t *testing.T) {
	path := writeTempConfig(t, `baud = 9600`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Role() != "generic" {
		t.Fatalf("Role() = %q, want generic", p.Role())
	}
	if p.HardwareID() != "unknown" {
		t.Fatalf("HardwareID() = %q, want unknown", p.HardwareID())
	}
}

func TestLoadRejectsNegativeBaud(t *testing.T) {
	path := writeTempConfig(t, `baud = -1`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a negative baud rate")
	}
}
