package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kbdimage/internal/mmfile"
	"github.com/joshuapare/kbdimage/layout"
	"github.com/joshuapare/kbdimage/layout/winvk"
	"github.com/joshuapare/kbdimage/windll"
)

var infoKeys bool

var infoCmd = &cobra.Command{
	Use:   "info <kbd.dll>",
	Short: "Print the metadata and table sizes of a driver DLL",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoKeys, "keys", false, "also list every key assignment")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	f, err := mmfile.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	l, arch, warnings, err := windll.DecompileArch(f.Data)
	if err != nil {
		return fmt.Errorf("decompile %s: %w", args[0], err)
	}
	for _, w := range warnings {
		slog.Debug(w.Message, "code", w.Code.String())
	}

	fmt.Printf("Architecture:  %s\n", arch.Name)
	fmt.Printf("Name:          %s\n", l.Name)
	fmt.Printf("Author:        %s\n", l.Author)
	fmt.Printf("Copyright:     %s\n", l.Copyright)
	fmt.Printf("Version:       %s\n", l.Version)
	fmt.Printf("DLL name:      %s\n", l.DLLName)
	fmt.Printf("Keys:          %d\n", len(l.Keymap))
	fmt.Printf("Character VKs: %d\n", len(l.Charmap))
	fmt.Printf("Dead keys:     %d\n", len(l.DeadKeys))
	fmt.Printf("Warnings:      %d\n", len(warnings))

	if infoKeys {
		fmt.Println()
		for _, sc := range layout.SortedScanCodes(l.Keymap) {
			kc := l.Keymap[sc]
			name := kc.Name
			if name == "" {
				name = "-"
			}
			fmt.Printf("  %-6s %-16s %s\n", sc, winvk.Name(kc.WinVK), name)
		}
	}
	return nil
}
