package cli

import "testing"

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	t.Parallel()
	want := []string{"run", "resume", "plan", "status", "doctor", "version"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("expected rootCmd to have a %q subcommand, got %v", name, have)
		}
	}
}

func TestSetVersion_StoresBuildMetadata(t *testing.T) {
	origV, origC, origD := appVersion, appCommit, appDate
	defer func() { appVersion, appCommit, appDate = origV, origC, origD }()

	SetVersion("9.9.9", "deadbeef", "2026-07-31")
	if appVersion != "9.9.9" || appCommit != "deadbeef" || appDate != "2026-07-31" {
		t.Errorf("SetVersion did not persist fields: %s/%s/%s", appVersion, appCommit, appDate)
	}
}
