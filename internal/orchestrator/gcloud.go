package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	config "github.com/ethsweep/ethsweep/configs"
)

const (
	DEFAULT_ZONE           = "us-central1-a"
	DEFAULT_MACHINE_TYPE   = "e2-standard-2"
	DEFAULT_BOOT_DISK_SIZE = "20GB"

	workerDataPath = "/home/ethsweep/extraction/data"
)

// GCloudProvisioner shells out to the gcloud CLI to manage worker VMs. It is
// deliberately thin: all scheduling decisions live in the Orchestrator.
type GCloudProvisioner struct {
	project      string
	zone         string
	machineType  string
	bootDiskSize string
	repo         string
	extraction   config.Config
}

func NewGCloudProvisioner() *GCloudProvisioner {
	cfg := config.Cfg.Orchestrator
	zone := cfg.Zone
	if zone == "" {
		zone = DEFAULT_ZONE
	}
	machineType := cfg.MachineType
	if machineType == "" {
		machineType = DEFAULT_MACHINE_TYPE
	}
	bootDiskSize := cfg.BootDiskSize
	if bootDiskSize == "" {
		bootDiskSize = DEFAULT_BOOT_DISK_SIZE
	}
	return &GCloudProvisioner{
		project:      cfg.Project,
		zone:         zone,
		machineType:  machineType,
		bootDiskSize: bootDiskSize,
		repo:         cfg.Repo,
		extraction:   config.Cfg,
	}
}

func (p *GCloudProvisioner) Create(ctx context.Context, assignment WorkerAssignment) error {
	scriptFile, err := os.CreateTemp("", "startup-"+assignment.Name+"-*.sh")
	if err != nil {
		return err
	}
	defer os.Remove(scriptFile.Name())
	if _, err := scriptFile.WriteString(p.startupScript(assignment)); err != nil {
		scriptFile.Close()
		return err
	}
	scriptFile.Close()

	return p.run(ctx, "compute", "instances", "create", assignment.Name,
		"--project", p.project, "--zone", p.zone,
		"--machine-type", p.machineType,
		"--image-family", "ubuntu-2204-lts",
		"--image-project", "ubuntu-os-cloud",
		"--boot-disk-size", p.bootDiskSize,
		"--metadata-from-file", "startup-script="+scriptFile.Name(),
		"--labels", "app=ethsweep",
		"--quiet")
}

func (p *GCloudProvisioner) Status(ctx context.Context, name string) (WorkerStatus, error) {
	vmState, err := p.output(ctx, "compute", "instances", "describe", name,
		"--project", p.project, "--zone", p.zone,
		"--format", "value(status)", "--quiet")
	if err != nil || strings.TrimSpace(vmState) != "RUNNING" {
		return StatusStopped, nil
	}

	probe, err := p.output(ctx, "compute", "ssh", name,
		"--project", p.project, "--zone", p.zone,
		"--command", "cat "+workerDataPath+"/status.txt 2>/dev/null || echo STARTING",
		"--quiet")
	if err != nil {
		return StatusError, nil
	}
	return parseStatusLine(probe), nil
}

func (p *GCloudProvisioner) Download(ctx context.Context, name string, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return p.run(ctx, "compute", "scp", "--recurse",
		"--project", p.project, "--zone", p.zone,
		fmt.Sprintf("%s:%s/*", name, workerDataPath),
		destDir, "--quiet")
}

func (p *GCloudProvisioner) Delete(ctx context.Context, name string) error {
	return p.run(ctx, "compute", "instances", "delete", name,
		"--project", p.project, "--zone", p.zone, "--quiet")
}

func (p *GCloudProvisioner) List(ctx context.Context) ([]string, error) {
	out, err := p.output(ctx, "compute", "instances", "list",
		"--project", p.project, "--zones", p.zone,
		"--filter", "labels.app=ethsweep",
		"--format", "value(name)", "--quiet")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// startupScript installs the extractor on the VM and launches it detached
// with a generated .env for its time slice.
func (p *GCloudProvisioner) startupScript(assignment WorkerAssignment) string {
	envVars := fmt.Sprintf(`RPC_URL=%s
RANGE_START=%s
RANGE_END=%s
INTERVAL_SPANKIND=%s
INTERVAL_SPANLENGTH=%v
INTERVAL_ALIGNED=%t
SAMPLING_POLICY=%s
SAMPLING_OBSERVATIONBUDGET=%d
RPC_FETCHDELAYMS=%d
OUTPUT_DIRECTORY=data`,
		assignment.Endpoint,
		assignment.Start.Format(config.TimeLayout),
		assignment.End.Format(config.TimeLayout),
		p.extraction.Interval.SpanKind,
		p.extraction.Interval.SpanLength,
		p.extraction.Interval.Aligned,
		p.extraction.Sampling.Policy,
		p.extraction.Sampling.ObservationBudget,
		p.extraction.RPC.FetchDelayMs)

	return fmt.Sprintf(`#!/bin/bash
set -e
exec > /var/log/startup-script.log 2>&1

apt-get update -qq
apt-get install -y git golang-go screen

mkdir -p /home/ethsweep/extraction && cd /home/ethsweep/extraction
git clone %s .

cat > .env << 'EOF'
%s
EOF

go build -o ethsweep ./cmd/ethsweep
screen -dmS extraction ./ethsweep extract
touch /tmp/startup-complete
`, p.repo, envVars)
}

// parseStatusLine maps the worker's status file onto a WorkerStatus.
func parseStatusLine(line string) WorkerStatus {
	line = strings.ToUpper(strings.TrimSpace(line))
	switch {
	case strings.Contains(line, "COMPLETED"):
		return StatusCompleted
	case strings.Contains(line, "FAILED"):
		return StatusFailed
	case strings.Contains(line, "PROCESSING"), strings.Contains(line, "RUNNING"), strings.Contains(line, "STARTED"):
		return StatusRunning
	case strings.Contains(line, "STARTING"):
		return StatusStarting
	default:
		return StatusError
	}
}

func (p *GCloudProvisioner) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "gcloud", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		log.Error().Err(err).Str("args", strings.Join(args, " ")).Msgf("gcloud command failed: %s", string(out))
		return fmt.Errorf("gcloud %s: %v", args[0], err)
	}
	return nil
}

func (p *GCloudProvisioner) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gcloud", args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("gcloud %s: %v", args[0], err)
	}
	return string(out), nil
}
