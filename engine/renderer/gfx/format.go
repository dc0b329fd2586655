package gfx

import (
	"fmt"
	"strings"
)

type Format int

const (
	FormatUndefined Format = iota
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8Srgb
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8Srgb
	FormatR16G16B16A16Sfloat
	FormatR32G32B32A32Sfloat
	FormatR32Sfloat
	FormatD32Sfloat
	FormatD32SfloatS8Uint
	FormatD24UnormS8Uint
)

var formatNames = map[Format]string{
	FormatUndefined:          "undefined",
	FormatR8G8B8A8Unorm:      "rgba8_unorm",
	FormatR8G8B8A8Srgb:       "rgba8_srgb",
	FormatB8G8R8A8Unorm:      "bgra8_unorm",
	FormatB8G8R8A8Srgb:       "bgra8_srgb",
	FormatR16G16B16A16Sfloat: "rgba16_sfloat",
	FormatR32G32B32A32Sfloat: "rgba32_sfloat",
	FormatR32Sfloat:          "r32_sfloat",
	FormatD32Sfloat:          "d32_sfloat",
	FormatD32SfloatS8Uint:    "d32_sfloat_s8_uint",
	FormatD24UnormS8Uint:     "d24_unorm_s8_uint",
}

// IsDepth reports whether the format is used as a depth(-stencil) attachment.
func (f Format) IsDepth() bool {
	switch f {
	case FormatD32Sfloat, FormatD32SfloatS8Uint, FormatD24UnormS8Uint:
		return true
	}
	return false
}

func (f Format) HasStencil() bool {
	return f == FormatD32SfloatS8Uint || f == FormatD24UnormS8Uint
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", int(f))
}

func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, n := range formatNames {
		if n == s {
			return f, nil
		}
	}
	return FormatUndefined, fmt.Errorf("unknown format %q", s)
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	v, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

type PresentMode int

const (
	// Non-tearing, replaces the queued image; preferred.
	PresentModeMailbox PresentMode = iota
	// Non-tearing and always available.
	PresentModeFifo
	PresentModeFifoRelaxed
	// Tears; never chosen unless explicitly requested.
	PresentModeImmediate
)

var presentModeNames = map[PresentMode]string{
	PresentModeImmediate:   "immediate",
	PresentModeMailbox:     "mailbox",
	PresentModeFifo:        "fifo",
	PresentModeFifoRelaxed: "fifo_relaxed",
}

func (m PresentMode) String() string {
	if n, ok := presentModeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("present_mode(%d)", int(m))
}

func ParsePresentMode(s string) (PresentMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, n := range presentModeNames {
		if n == s {
			return m, nil
		}
	}
	return PresentModeFifo, fmt.Errorf("unknown present mode %q", s)
}

func (m PresentMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *PresentMode) UnmarshalText(text []byte) error {
	v, err := ParsePresentMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
