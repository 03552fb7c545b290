// Package encoder picks the H.264 encoder ffmpeg uses for panel clips.
//
// Detection reads the PCI vendor of every DRM card under /sys/class/drm and
// falls back to nvidia-smi. The mapping from vendor to codec is pure:
// NVIDIA uses h264_nvenc, Intel uses h264_qsv, and AMD or an unknown vendor
// uses libx264. A Selector runs detection once per process, honours the
// render.encoder override, and confirms that ffmpeg lists a hardware codec
// before choosing it. Every failure degrades to libx264.
package encoder
