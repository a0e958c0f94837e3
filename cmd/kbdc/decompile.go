package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kbdimage/internal/mmfile"
	"github.com/joshuapare/kbdimage/internal/output"
	"github.com/joshuapare/kbdimage/layout"
	"github.com/joshuapare/kbdimage/windll"
)

var decompileOut string

var decompileCmd = &cobra.Command{
	Use:   "decompile <kbd.dll>",
	Short: "Reconstruct a layout description from a driver DLL",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecompile,
}

func init() {
	decompileCmd.Flags().StringVarP(&decompileOut, "out", "o", "",
		"write the layout JSON here instead of stdout")
	rootCmd.AddCommand(decompileCmd)
}

func runDecompile(cmd *cobra.Command, args []string) error {
	f, err := mmfile.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	l, arch, warnings, err := windll.DecompileArch(f.Data)
	for _, w := range warnings {
		slog.Warn(w.Message, "code", w.Code.String())
	}
	if err != nil {
		return fmt.Errorf("decompile %s: %w", args[0], err)
	}
	slog.Info("decompiled driver", "path", args[0], "arch", arch.Name)

	out, err := layout.Marshal(l)
	if err != nil {
		return err
	}
	out = append(out, '\n')
	if decompileOut == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return output.WriteFile(decompileOut, out)
}
