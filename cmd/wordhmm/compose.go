package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ieee0824/wordhmm-go/compose"
	"github.com/ieee0824/wordhmm-go/corpus"
	"github.com/ieee0824/wordhmm-go/lexicon"
)

var composeCmd = &cobra.Command{
	Use:   "compose WORD",
	Short: "Print the composite model layout of a word",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)
	composeCmd.Flags().Int("outputs", 256, "observation alphabet size")
	composeCmd.Flags().String("lblnames", "", "label-name file; sets the alphabet size")
	composeCmd.Flags().String("dict", "", "spelling dictionary (optional)")
}

func runCompose(cmd *cobra.Command, args []string) error {
	word := args[0]
	outputs, _ := cmd.Flags().GetInt("outputs")
	if path, _ := cmd.Flags().GetString("lblnames"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		set, err := corpus.ReadLabelNames(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		outputs = set.Len()
	}

	spelling, err := compose.Spell(word)
	if path, _ := cmd.Flags().GetString("dict"); path != "" {
		dict, derr := lexicon.LoadFile(path)
		if derr != nil {
			return fmt.Errorf("load dict: %w", derr)
		}
		if s, ok := dict.Spelling(word); ok {
			spelling, err = s, nil
		} else if near, dist, ok := dict.Nearest(word); ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "%q not in dictionary; nearest is %q (distance %d)\n", word, near, dist)
		}
	}
	if err != nil {
		return err
	}

	inv, err := compose.StandardInventory(outputs, nil, nil)
	if err != nil {
		return err
	}
	m, err := inv.Build(spelling)
	if err != nil {
		return err
	}
	glue, err := inv.GlueArcs(spelling)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "word:    %s\n", m.Name)
	fmt.Fprintf(w, "states:  %d\n", m.States)
	fmt.Fprintf(w, "outputs: %d\n", m.Outputs)
	for _, a := range glue {
		fmt.Fprintf(w, "glue:    %d -> %d  p=%.4f\n", a.From, a.To, m.Trans[a.From][a.To])
	}
	for _, a := range m.NullArcs().Arcs() {
		fmt.Fprintf(w, "null:    %d -> %d  p=%.4f\n", a.From, a.To, m.NullProb(a.From, a.To))
	}
	fmt.Fprintf(w, "order:   %v\n", m.Order())
	return nil
}
