package cli

import "testing"

func TestCheckBinary_Found(t *testing.T) {
	t.Parallel()
	c := checkBinary("true")
	if !c.ok {
		t.Errorf("expected 'true' binary to be found, got info=%q", c.info)
	}
	if c.name != "true" {
		t.Errorf("expected name 'true', got %q", c.name)
	}
}

func TestCheckBinary_NotFound(t *testing.T) {
	t.Parallel()
	c := checkBinary("this_binary_definitely_does_not_exist_xyz_12345")
	if c.ok {
		t.Error("expected unknown binary to fail the check")
	}
	if c.info == "" {
		t.Error("expected a not-found message")
	}
}

func TestCheckResources_AllPresent(t *testing.T) {
	t.Parallel()
	checks := checkResources()
	names := map[string]bool{}
	for _, c := range checks {
		names[c.name] = true
	}
	for _, want := range []string{"cpu", "memory", "disk"} {
		if !names[want] {
			t.Errorf("expected a %q check in checkResources(), got %v", want, checks)
		}
	}
}
