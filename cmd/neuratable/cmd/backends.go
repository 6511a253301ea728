// Copyright 2026 The NeuraTable Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mayjs/NeuraTable/lib/runner"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Report detected execution backends",
	Long: `Report which accelerators were detected on this machine.

Processing prefers the accelerated GoMLX engine and falls back to CPU
inference through ONNX Runtime when no accelerator is usable.`,
	RunE: runBackends,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

func runBackends(cmd *cobra.Command, args []string) error {
	info := runner.DetectGPU()
	if !info.Available {
		fmt.Println("No accelerator detected; inference will run on CPU via ONNX Runtime.")
		return nil
	}

	fmt.Printf("Accelerator: %s\n", info.Type)
	if info.DeviceName != "" {
		fmt.Printf("Device:      %s\n", info.DeviceName)
	}
	if info.DriverVer != "" {
		fmt.Printf("Driver:      %s\n", info.DriverVer)
	}
	return nil
}
