// Copyright 2026 The NeuraTable Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package runner

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// GPUInfo describes a detected accelerator.
type GPUInfo struct {
	Available  bool
	Type       string // "cuda", "tpu", or "none"
	DeviceName string
	DriverVer  string
}

var (
	gpuInfo     GPUInfo
	gpuInfoOnce sync.Once
)

// DetectGPU checks whether an accelerator usable by the XLA engine is
// present. Results are cached after the first call.
func DetectGPU() GPUInfo {
	gpuInfoOnce.Do(func() {
		gpuInfo = detectGPUImpl()
	})
	return gpuInfo
}

// IsGPUAvailable reports whether any accelerator was detected.
func IsGPUAvailable() bool {
	return DetectGPU().Available
}

func detectGPUImpl() GPUInfo {
	// TPU nodes take priority over any co-located GPU.
	if info := detectTPU(); info.Available {
		return info
	}
	if runtime.GOOS == "linux" || runtime.GOOS == "windows" {
		return detectCUDA()
	}
	return GPUInfo{Type: "none"}
}

// detectTPU checks for Cloud TPU availability (GKE TPU node pools and Cloud
// TPU VMs).
func detectTPU() GPUInfo {
	info := GPUInfo{Type: "none"}

	if backend := os.Getenv("GOMLX_BACKEND"); strings.Contains(strings.ToLower(backend), "tpu") {
		info.Available = true
		info.Type = "tpu"
		info.DeviceName = "TPU (via GOMLX_BACKEND)"
		return info
	}

	if tpuLibsExist() {
		info.Available = true
		info.Type = "tpu"
		info.DeviceName = "TPU (libtpu.so detected)"
		return info
	}

	// GKE TPU nodes expose /dev/accel* devices.
	if matches, _ := filepath.Glob("/dev/accel*"); len(matches) > 0 {
		info.Available = true
		info.Type = "tpu"
		info.DeviceName = "TPU (accel device)"
		return info
	}

	return info
}

func tpuLibsExist() bool {
	tpuPaths := []string{
		"/usr/local/lib",
		"/usr/lib",
	}
	if pjrtPath := os.Getenv("PJRT_PLUGIN_LIBRARY_PATH"); pjrtPath != "" {
		tpuPaths = append([]string{pjrtPath}, tpuPaths...)
	}
	if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
		tpuPaths = append(strings.Split(ldPath, ":"), tpuPaths...)
	}
	for _, dir := range tpuPaths {
		if matches, _ := filepath.Glob(filepath.Join(dir, "libtpu.so*")); len(matches) > 0 {
			return true
		}
		if matches, _ := filepath.Glob(filepath.Join(dir, "pjrt_plugin_tpu.so*")); len(matches) > 0 {
			return true
		}
	}
	return false
}

func detectCUDA() GPUInfo {
	if info := tryNvidiaSMI(); info.Available {
		return info
	}
	if cudaLibsExist() {
		return GPUInfo{
			Available:  true,
			Type:       "cuda",
			DeviceName: "CUDA (libraries detected)",
		}
	}
	return GPUInfo{Type: "none"}
}

func tryNvidiaSMI() GPUInfo {
	info := GPUInfo{Type: "none"}

	nvidiaSMI, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return info
	}

	cmd := exec.Command(nvidiaSMI, "--query-gpu=name,driver_version", "--format=csv,noheader,nounits") //nolint:gosec // G204: nvidiaSMI path comes from LookPath("nvidia-smi")
	output, err := cmd.Output()
	if err != nil {
		return info
	}

	parts := strings.Split(strings.TrimSpace(string(output)), ", ")
	info.Available = true
	info.Type = "cuda"
	if len(parts) >= 1 {
		info.DeviceName = strings.TrimSpace(parts[0])
	}
	if len(parts) >= 2 {
		info.DriverVer = strings.TrimSpace(parts[1])
	}
	return info
}

func cudaLibsExist() bool {
	cudaPaths := []string{
		"/usr/local/cuda/lib64",
		"/usr/lib/x86_64-linux-gnu",
		"/usr/lib64",
	}
	if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
		cudaPaths = append(strings.Split(ldPath, ":"), cudaPaths...)
	}
	for _, dir := range cudaPaths {
		matches, _ := filepath.Glob(filepath.Join(dir, "libcudart.so*"))
		if len(matches) > 0 {
			return true
		}
	}
	return false
}
