package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"auto_spec_builder/pipeline"

	"github.com/spf13/cobra"
)

var (
	genInput        string
	genOwner        int64
	genProject      int64
	genDomain       string
	genInstructions string
	genPromptID     int64
	genDryRun       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Structure customer text into a specification",
	Long: `Reads customer text from --input (or stdin), asks the configured model to
structure it, and stores the result under --project. With --dry-run the
structured tree is printed and nothing is stored.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genInput, "input", "i", "", "text file to read (.txt or .docx); stdin when empty")
	generateCmd.Flags().Int64Var(&genOwner, "user", 1, "owning user id")
	generateCmd.Flags().Int64Var(&genProject, "project", 0, "project id the specification belongs to")
	generateCmd.Flags().StringVar(&genDomain, "crm", "", "domain context id (see GET /api/crm/systems)")
	generateCmd.Flags().StringVar(&genInstructions, "instructions", "", "instruction block replacing the default one")
	generateCmd.Flags().Int64Var(&genPromptID, "prompt", 0, "saved prompt id to use as instructions")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "print the structured tree without storing it")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	text, err := readSource(cmd.InOrStdin(), genInput)
	if err != nil {
		return err
	}
	if !genDryRun && genProject == 0 {
		return errors.New("--project is required unless --dry-run is set")
	}

	a, err := openApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	in := pipeline.StructureInput{
		OwnerID:      genOwner,
		Text:         text,
		Instructions: genInstructions,
		PromptID:     genPromptID,
		DomainID:     genDomain,
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if genDryRun {
		tree, err := a.pipeline.Structure(cmd.Context(), in)
		if err != nil {
			return err
		}
		return enc.Encode(tree)
	}
	spec, err := a.pipeline.Generate(cmd.Context(), pipeline.GenerateInput{StructureInput: in, ProjectID: genProject})
	if err != nil {
		return err
	}
	return enc.Encode(spec)
}

func readSource(stdin io.Reader, path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	return pipeline.ExtractText(path, f, info.Size())
}
