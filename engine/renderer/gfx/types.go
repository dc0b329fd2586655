// Package gfx declares the contract a graphics API binding must satisfy for
// the frame graph: opaque handles, descriptors and the Device interface.
package gfx

import (
	"fmt"
	"math"
)

// Opaque backend handles. The zero value of each is the null handle.
type (
	Image         uint64
	ImageView     uint64
	RenderPass    uint64
	Framebuffer   uint64
	Semaphore     uint64
	Fence         uint64
	CommandBuffer uint64
	Swapchain     uint64
	Surface       uint64
)

type Extent struct {
	Width  uint32
	Height uint32
}

// UndefinedExtent is reported by surfaces whose size is decided by the swapchain.
var UndefinedExtent = Extent{Width: math.MaxUint32, Height: math.MaxUint32}

func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

// MaxDimension bounds scaled extents: the usual maxImageDimension2D of
// desktop devices.
const MaxDimension = 16384

// Scale multiplies both dimensions by f, staying within one pixel and
// MaxDimension.
func (e Extent) Scale(f float32) Extent {
	return Extent{Width: scaleDim(e.Width, f), Height: scaleDim(e.Height, f)}
}

func scaleDim(d uint32, f float32) uint32 {
	v := float64(d) * float64(f)
	switch {
	case math.IsNaN(v) || v < 1:
		return 1
	case v > MaxDimension:
		return MaxDimension
	}
	return uint32(v)
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

type Rect struct {
	X, Y   int32
	Extent Extent
}

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type QueueKind int

const (
	QueueGraphics QueueKind = iota
	QueuePresent
	QueueTransfer
)

func (q QueueKind) String() string {
	switch q {
	case QueueGraphics:
		return "graphics"
	case QueuePresent:
		return "present"
	case QueueTransfer:
		return "transfer"
	}
	return fmt.Sprintf("queue(%d)", int(q))
}

type PipelineStage uint32

const (
	StageTopOfPipe             PipelineStage = 0x00000001
	StageFragmentShader        PipelineStage = 0x00000080
	StageEarlyFragmentTests    PipelineStage = 0x00000100
	StageLateFragmentTests     PipelineStage = 0x00000200
	StageColorAttachmentOutput PipelineStage = 0x00000400
	StageBottomOfPipe          PipelineStage = 0x00002000
	StageAllCommands           PipelineStage = 0x00010000
)

// Status is the non-error outcome of acquire and present.
type Status int

const (
	StatusSuccess Status = iota
	// The swapchain can still present but no longer matches the surface.
	StatusSuboptimal
	// The swapchain must be recreated before it can be used again.
	StatusOutOfDate
)

// Stale reports whether the swapchain has to be rebuilt.
func (s Status) Stale() bool {
	return s == StatusSuboptimal || s == StatusOutOfDate
}

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out-of-date"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type LoadOp int

const (
	LoadOpDontCare LoadOp = iota
	LoadOpClear
	LoadOpLoad
)

type ImageUsage uint32

const (
	UsageColorAttachment ImageUsage = 1 << iota
	UsageDepthStencilAttachment
	UsageSampled
	UsageTransferSrc
	UsageTransferDst
)

type ImageDesc struct {
	// Debug name, unique per allocation.
	Name   string
	Format Format
	Extent Extent
	Usage  ImageUsage
}

type AttachmentDesc struct {
	Format Format
	Load   LoadOp
	// Store keeps the contents after the pass so that later passes can read them.
	Store bool
	// Present transitions the attachment to the presentable layout.
	Present bool
}

type RenderPassDesc struct {
	Name   string
	Colors []AttachmentDesc
	Depth  *AttachmentDesc
}

type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

type RenderPassBegin struct {
	Pass        RenderPass
	Framebuffer Framebuffer
	Area        Rect
	Clear       []ClearValue
}

type SemaphoreWait struct {
	Semaphore Semaphore
	Stage     PipelineStage
}

type SubmitInfo struct {
	Waits          []SemaphoreWait
	CommandBuffers []CommandBuffer
	Signals        []Semaphore
}

type ColorSpace int

const (
	ColorSpaceSrgbNonlinear ColorSpace = iota
	ColorSpaceExtendedSrgbLinear
)

type SurfaceFormat struct {
	Format     Format
	ColorSpace ColorSpace
}

type SurfaceCapabilities struct {
	// UndefinedExtent when the swapchain decides the size.
	CurrentExtent Extent
	MinExtent     Extent
	MaxExtent     Extent
	MinImageCount uint32
	// Zero means no limit.
	MaxImageCount uint32
	Formats       []SurfaceFormat
	PresentModes  []PresentMode
}

type SwapchainDesc struct {
	Surface     Surface
	Extent      Extent
	Format      SurfaceFormat
	PresentMode PresentMode
	ImageCount  uint32
	Old         Swapchain
}
