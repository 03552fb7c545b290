package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	pciVendorNvidia = "0x10de"
	pciVendorIntel  = "0x8086"
	pciVendorAMD    = "0x1002"
)

// vendorPreference ranks vendors when several cards are present; a discrete
// NVIDIA card wins over an integrated Intel one.
var vendorPreference = []Vendor{VendorNvidia, VendorIntel, VendorAMD}

// Detector probes the host for a GPU vendor.
type Detector struct {
	// DRMRoot is the sysfs directory holding card* entries.
	DRMRoot string
	// NvidiaSMI is the fallback probe binary.
	NvidiaSMI string
}

// DefaultDetector probes the real host.
func DefaultDetector() Detector {
	return Detector{DRMRoot: "/sys/class/drm", NvidiaSMI: "nvidia-smi"}
}

// Detect returns the preferred vendor present on the host. A host without a
// recognised GPU reports VendorUnknown with a nil error; an error means the
// probe itself could not run.
func (d Detector) Detect(ctx context.Context) (Vendor, error) {
	found, sysErr := d.scanDRM()
	for _, preferred := range vendorPreference {
		if _, ok := found[preferred]; ok {
			return preferred, nil
		}
	}

	smiErr := d.probeNvidiaSMI(ctx)
	if smiErr == nil {
		return VendorNvidia, nil
	}
	if sysErr != nil && !errors.Is(smiErr, exec.ErrNotFound) {
		return VendorUnknown, fmt.Errorf("gpu probe: %w", errors.Join(sysErr, smiErr))
	}
	return VendorUnknown, nil
}

func (d Detector) scanDRM() (map[Vendor]struct{}, error) {
	root := d.DRMRoot
	if root == "" {
		root = "/sys/class/drm"
	}
	matches, err := filepath.Glob(filepath.Join(root, "card*", "device", "vendor"))
	if err != nil {
		return nil, err
	}
	found := make(map[Vendor]struct{})
	var readErrs []error
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			readErrs = append(readErrs, err)
			continue
		}
		if v := vendorFromPCI(string(data)); v != VendorUnknown {
			found[v] = struct{}{}
		}
	}
	if len(found) == 0 && len(readErrs) > 0 {
		return found, errors.Join(readErrs...)
	}
	return found, nil
}

func vendorFromPCI(id string) Vendor {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case pciVendorNvidia:
		return VendorNvidia
	case pciVendorIntel:
		return VendorIntel
	case pciVendorAMD:
		return VendorAMD
	default:
		return VendorUnknown
	}
}

func (d Detector) probeNvidiaSMI(ctx context.Context) error {
	binary := d.NvidiaSMI
	if binary == "" {
		binary = "nvidia-smi"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return err
	}
	out, err := exec.CommandContext(ctx, binary, "-L").Output()
	if err != nil {
		return fmt.Errorf("nvidia-smi -L: %w", err)
	}
	if !strings.Contains(string(out), "GPU ") {
		return errors.New("nvidia-smi listed no GPUs")
	}
	return nil
}
