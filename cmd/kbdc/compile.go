package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/kbdimage/internal/output"
	"github.com/joshuapare/kbdimage/layout"
	"github.com/joshuapare/kbdimage/windll"
	"github.com/joshuapare/kbdimage/wintypes"
)

var (
	compileOut        string
	compileArchs      []string
	compileTimestamp  int64
	compileNoChecksum bool
)

var archByFlag = map[string]*wintypes.Architecture{
	"x86":   wintypes.X86,
	"wow64": wintypes.WOW64,
	"amd64": wintypes.AMD64,
}

var compileCmd = &cobra.Command{
	Use:   "compile <layout.json|layout.yaml>",
	Short: "Compile a layout into driver DLLs for each architecture",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", env.Str("KBDC_OUT", "."),
		"output directory; one subdirectory per architecture")
	compileCmd.Flags().StringSliceVar(&compileArchs, "arch", []string{"x86", "wow64", "amd64"},
		"architectures to build")
	defaultTimestamp, _ := strconv.ParseInt(env.Str("SOURCE_DATE_EPOCH", "0"), 10, 64)
	compileCmd.Flags().Int64Var(&compileTimestamp, "timestamp",
		defaultTimestamp, "build timestamp (unix seconds, 0 = now)")
	compileCmd.Flags().BoolVar(&compileNoChecksum, "no-checksum", false,
		"leave the PE checksum field zero")
	rootCmd.AddCommand(compileCmd)
}

// loadLayout reads a layout description in JSON or, for .yaml/.yml paths,
// YAML rehydrated through the JSON model.
func loadLayout(path string) (*layout.Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var tree any
		if err := yaml.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		if raw, err = json.Marshal(tree); err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
	}
	return layout.Parse(raw)
}

func runCompile(cmd *cobra.Command, args []string) error {
	l, err := loadLayout(args[0])
	if err != nil {
		return err
	}

	cfg := windll.DefaultConfig()
	cfg.FixChecksum = !compileNoChecksum
	ts := compileTimestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	cfg.Timestamp = uint32(ts)

	for _, name := range compileArchs {
		arch, ok := archByFlag[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown architecture %q", name)
		}
		img, warnings, err := windll.Compile(l, arch, cfg)
		for _, w := range warnings {
			slog.Warn(w.Message, "code", w.Code.String(), "arch", arch.Name)
		}
		if err != nil {
			return fmt.Errorf("compile for %s: %w", arch.Name, err)
		}
		path := filepath.Join(compileOut, strings.ToLower(name), l.DLLName)
		if err := output.WriteFile(path, img); err != nil {
			return err
		}
		slog.Info("wrote driver", "path", path, "arch", arch.Name, "bytes", len(img))
	}
	return nil
}
