package cli

import (
	"fmt"
	"os/exec"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the host environment has what the orchestrator needs",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type doctorCheck struct {
	name string
	ok   bool
	info string
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	checks := []doctorCheck{
		checkBinary("git"),
		checkBinary("gh"),
	}

	cfg, err := loadConfig()
	if err == nil {
		checks = append(checks, checkBinary(cfg.Engine.Path))
	} else {
		checks = append(checks, doctorCheck{name: "config", ok: false, info: err.Error()})
	}

	checks = append(checks, checkResources()...)

	out := cmd.OutOrStdout()
	failed := false
	for _, c := range checks {
		mark := "ok"
		if !c.ok {
			mark = "FAIL"
			failed = true
		}
		if c.info != "" {
			fmt.Fprintf(out, "[%s] %-12s %s\n", mark, c.name, c.info)
		} else {
			fmt.Fprintf(out, "[%s] %s\n", mark, c.name)
		}
	}
	if failed {
		return fmt.Errorf("doctor: one or more checks failed")
	}
	return nil
}

func checkBinary(name string) doctorCheck {
	path, err := exec.LookPath(name)
	if err != nil {
		return doctorCheck{name: name, ok: false, info: "not found on PATH"}
	}
	return doctorCheck{name: name, ok: true, info: path}
}

func checkResources() []doctorCheck {
	var checks []doctorCheck

	if cores, err := cpu.Counts(true); err == nil {
		checks = append(checks, doctorCheck{name: "cpu", ok: cores > 0, info: fmt.Sprintf("%d logical cores", cores)})
	} else {
		checks = append(checks, doctorCheck{name: "cpu", ok: false, info: err.Error()})
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		checks = append(checks, doctorCheck{
			name: "memory",
			ok:   vm.Available > 256*1024*1024,
			info: fmt.Sprintf("%.1f GB available of %.1f GB", float64(vm.Available)/1e9, float64(vm.Total)/1e9),
		})
	} else {
		checks = append(checks, doctorCheck{name: "memory", ok: false, info: err.Error()})
	}

	if usage, err := disk.Usage("."); err == nil {
		checks = append(checks, doctorCheck{
			name: "disk",
			ok:   usage.Free > 1024*1024*1024,
			info: fmt.Sprintf("%.1f GB free of %.1f GB", float64(usage.Free)/1e9, float64(usage.Total)/1e9),
		})
	} else {
		checks = append(checks, doctorCheck{name: "disk", ok: false, info: err.Error()})
	}

	return checks
}
