package encoder

import (
	"fmt"
	"strings"
)

// Vendor identifies the GPU maker detected on the host.
type Vendor string

const (
	VendorNvidia  Vendor = "nvidia"
	VendorIntel   Vendor = "intel"
	VendorAMD     Vendor = "amd"
	VendorUnknown Vendor = "unknown"
)

// Codec is an ffmpeg video encoder name.
type Codec string

const (
	CodecNVENC Codec = "h264_nvenc"
	CodecQSV   Codec = "h264_qsv"
	CodecX264  Codec = "libx264"
)

// Override modes accepted by render.encoder.
const (
	ModeAuto  = "auto"
	ModeNVENC = "nvenc"
	ModeQSV   = "qsv"
	ModeX264  = "x264"
)

// CodecFor maps a vendor to its codec. AMD has no dedicated entry and shares
// the software path with unknown vendors.
func CodecFor(v Vendor) Codec {
	switch v {
	case VendorNvidia:
		return CodecNVENC
	case VendorIntel:
		return CodecQSV
	default:
		return CodecX264
	}
}

// Hardware reports whether c needs a GPU.
func (c Codec) Hardware() bool {
	return c == CodecNVENC || c == CodecQSV
}

// QualityArgs returns the fixed rate-control flags for c.
func (c Codec) QualityArgs() []string {
	switch c {
	case CodecNVENC:
		return []string{"-preset", "p4", "-cq", "23"}
	case CodecQSV:
		return []string{"-preset", "medium", "-global_quality", "23"}
	default:
		return []string{"-preset", "medium", "-crf", "23"}
	}
}

// CodecForMode resolves an explicit override. Auto returns false.
func CodecForMode(mode string) (Codec, bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeAuto:
		return "", false, nil
	case ModeNVENC:
		return CodecNVENC, true, nil
	case ModeQSV:
		return CodecQSV, true, nil
	case ModeX264:
		return CodecX264, true, nil
	default:
		return "", false, fmt.Errorf("unknown encoder mode %q", mode)
	}
}

func vendorForCodec(c Codec) Vendor {
	switch c {
	case CodecNVENC:
		return VendorNvidia
	case CodecQSV:
		return VendorIntel
	default:
		return VendorUnknown
	}
}
